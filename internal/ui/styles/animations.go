// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "time"

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// LineSpinner is the ASCII spinner used by the thinking indicator.
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// ShimmerInterval is how often skeleton placeholders advance their shimmer.
const ShimmerInterval = 120 * time.Millisecond

// ShimmerWidth is the width in cells of the moving highlight band.
const ShimmerWidth = 6

// ShimmerOffset returns the highlight start column for frame within a row
// of the given width. The band sweeps left to right and wraps around with
// a short pause off-screen.
func ShimmerOffset(frame, width int) int {
	if width <= 0 {
		return 0
	}
	period := width + ShimmerWidth*2
	pos := frame % period
	if pos < 0 {
		pos += period
	}
	return pos - ShimmerWidth
}
