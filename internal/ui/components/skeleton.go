// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/citeview/internal/ui/styles"
)

// =============================================================================
// SKELETON KINDS
// =============================================================================

// SkeletonKind selects a placeholder layout.
type SkeletonKind int

const (
	SkeletonNotebookPage SkeletonKind = iota
	SkeletonDashboard
	SkeletonHistoryPage
	SkeletonChatPanel
	SkeletonSourcesPanel
	SkeletonStudioPanel
)

func (k SkeletonKind) String() string {
	switch k {
	case SkeletonNotebookPage:
		return "notebook"
	case SkeletonDashboard:
		return "dashboard"
	case SkeletonHistoryPage:
		return "history"
	case SkeletonChatPanel:
		return "chat"
	case SkeletonSourcesPanel:
		return "sources"
	case SkeletonStudioPanel:
		return "studio"
	default:
		return "unknown"
	}
}

// bar is one placeholder block. Width is fixed cells when cells > 0,
// otherwise frac of the row.
type bar struct {
	indent int
	cells  int
	frac   float64
}

func (b bar) width(row int) int {
	if b.cells > 0 {
		return b.cells
	}
	return int(float64(row) * b.frac)
}

// skeletonRow is a line of bars. A nil row is a blank spacer line.
type skeletonRow []bar

func fixed(n int) bar { return bar{cells: n} }
func frac(f float64) bar { return bar{frac: f} }
func indented(i int, b bar) bar { b.indent = i; return b }

// =============================================================================
// SKELETON
// =============================================================================

// SkeletonTickMsg advances the shimmer of every visible skeleton.
type SkeletonTickMsg struct {
	Time time.Time
}

// SkeletonTick schedules the next shimmer frame.
func SkeletonTick() tea.Cmd {
	return tea.Tick(styles.ShimmerInterval, func(t time.Time) tea.Msg {
		return SkeletonTickMsg{Time: t}
	})
}

// Skeleton is a shimmering placeholder shown while content loads.
type Skeleton struct {
	Kind   SkeletonKind
	Width  int
	Height int
	frame  int
	theme  *styles.Theme
}

// NewSkeleton creates a skeleton of kind sized 80x24.
func NewSkeleton(kind SkeletonKind, theme *styles.Theme) Skeleton {
	return Skeleton{Kind: kind, Width: 80, Height: 24, theme: theme}
}

// SetSize sets the render area.
func (s *Skeleton) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// Frame returns the current shimmer frame.
func (s Skeleton) Frame() int {
	return s.frame
}

// Update advances the shimmer on each tick and schedules the next one.
func (s Skeleton) Update(msg tea.Msg) (Skeleton, tea.Cmd) {
	if _, ok := msg.(SkeletonTickMsg); ok {
		s.frame++
		return s, SkeletonTick()
	}
	return s, nil
}

// View renders the placeholder clipped to Width x Height.
func (s Skeleton) View() string {
	if s.Width <= 0 || s.Height <= 0 {
		return ""
	}
	var out string
	if s.Kind == SkeletonNotebookPage {
		out = s.notebook()
	} else {
		out = s.renderRows(s.rows(s.Kind), s.Width)
	}
	lines := strings.Split(out, "\n")
	if len(lines) > s.Height {
		lines = lines[:s.Height]
	}
	return strings.Join(lines, "\n")
}

// notebook is the three-column page: sources, chat, studio.
func (s Skeleton) notebook() string {
	side := s.Width / 4
	if side < 12 {
		return s.renderRows(s.rows(SkeletonChatPanel), s.Width)
	}
	center := s.Width - 2*side - 2
	left := lipgloss.NewStyle().Width(side).Render(s.renderRows(s.rows(SkeletonSourcesPanel), side-1))
	mid := lipgloss.NewStyle().Width(center).Render(s.renderRows(s.rows(SkeletonChatPanel), center-1))
	right := lipgloss.NewStyle().Width(side).Render(s.renderRows(s.rows(SkeletonStudioPanel), side-1))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", mid, " ", right)
}

func (s Skeleton) rows(kind SkeletonKind) []skeletonRow {
	var rows []skeletonRow
	switch kind {
	case SkeletonChatPanel:
		for i := 0; i < 3; i++ {
			rows = append(rows,
				skeletonRow{frac(0.8)},
				skeletonRow{frac(0.6)},
				nil)
		}
		rows = append(rows, skeletonRow{frac(1)})
	case SkeletonSourcesPanel:
		rows = append(rows, skeletonRow{frac(1)}, nil)
		for i := 0; i < 5; i++ {
			rows = append(rows,
				skeletonRow{fixed(2), frac(0.7)},
				skeletonRow{indented(3, frac(0.45))})
		}
	case SkeletonStudioPanel:
		for i := 0; i < 4; i++ {
			rows = append(rows,
				skeletonRow{fixed(4), fixed(10), fixed(2)},
				skeletonRow{indented(5, fixed(14))},
				nil)
		}
	case SkeletonDashboard:
		rows = append(rows, skeletonRow{fixed(16)}, nil)
		for i := 0; i < 3; i++ {
			rows = append(rows,
				skeletonRow{frac(0.75)},
				skeletonRow{frac(1)},
				skeletonRow{frac(0.66)},
				skeletonRow{fixed(6), fixed(6)},
				nil)
		}
	case SkeletonHistoryPage:
		rows = append(rows, skeletonRow{fixed(16)}, nil)
		for i := 0; i < 5; i++ {
			rows = append(rows,
				skeletonRow{fixed(4), frac(0.5), fixed(8)},
				skeletonRow{indented(5, frac(0.3))},
				nil)
		}
	}
	return rows
}

func (s Skeleton) renderRows(rows []skeletonRow, width int) string {
	if width < 1 {
		width = 1
	}
	offset := styles.ShimmerOffset(s.frame, width)
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, s.renderRow(row, width, offset))
	}
	return strings.Join(lines, "\n")
}

func (s Skeleton) renderRow(row skeletonRow, width, offset int) string {
	var b strings.Builder
	col := 0
	for i, br := range row {
		gap := br.indent
		if i > 0 {
			gap++
		}
		if col+gap >= width {
			break
		}
		b.WriteString(strings.Repeat(" ", gap))
		col += gap

		n := br.width(width)
		if col+n > width {
			n = width - col
		}
		if n <= 0 {
			break
		}
		b.WriteString(s.block(col, n, offset))
		col += n
	}
	return b.String()
}

// block renders n cells starting at col, with the cells inside the
// shimmer band [offset, offset+ShimmerWidth) highlighted.
func (s Skeleton) block(col, n, offset int) string {
	end := col + n
	shineStart := max(col, offset)
	shineEnd := min(end, offset+styles.ShimmerWidth)
	if shineStart >= shineEnd {
		return s.theme.SkeletonBlock.Render(strings.Repeat(" ", n))
	}

	var b strings.Builder
	if shineStart > col {
		b.WriteString(s.theme.SkeletonBlock.Render(strings.Repeat(" ", shineStart-col)))
	}
	b.WriteString(s.theme.SkeletonShine.Render(strings.Repeat(" ", shineEnd-shineStart)))
	if end > shineEnd {
		b.WriteString(s.theme.SkeletonBlock.Render(strings.Repeat(" ", end-shineEnd)))
	}
	return b.String()
}
