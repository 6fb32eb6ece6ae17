// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestNewThemeWithProfile(t *testing.T) {
	th := NewThemeWithProfile(termenv.TrueColor, true)
	assert.True(t, th.HasTrueColor)
	assert.True(t, th.IsDark)
	assert.Equal(t, 80, th.Width)

	th.SetSize(120, 40)
	assert.Equal(t, 120, th.Width)
	assert.Equal(t, 40, th.Height)

	ascii := NewThemeWithProfile(termenv.Ascii, false)
	assert.False(t, ascii.HasTrueColor)
}

func TestStatusRenderersIncludeShapes(t *testing.T) {
	assert.True(t, strings.Contains(RenderSuccess("done"), "[OK] done"))
	assert.True(t, strings.Contains(RenderError("bad"), "[X] bad"))
	assert.True(t, strings.Contains(RenderWarning("hmm"), "[!] hmm"))
	assert.True(t, strings.Contains(RenderInfo("fyi"), "[i] fyi"))
	assert.Contains(t, RenderLink("here"), "here")
}

func TestSpinnerConfigDuration(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, LineSpinner.Duration())
	assert.Equal(t, time.Second, SpinnerConfig{}.Duration())
}

func TestShimmerOffset(t *testing.T) {
	assert.Equal(t, -ShimmerWidth, ShimmerOffset(0, 20))
	assert.Equal(t, 0, ShimmerOffset(ShimmerWidth, 20))

	period := 20 + ShimmerWidth*2
	assert.Equal(t, ShimmerOffset(3, 20), ShimmerOffset(3+period, 20))
	assert.Equal(t, 0, ShimmerOffset(5, 0))
}
