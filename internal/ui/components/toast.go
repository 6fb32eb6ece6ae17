// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/citeview/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast (cyan)
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast (rose)
	ToastKindError
	// ToastKindWarning is a warning toast (amber)
	ToastKindWarning
	// ToastKindSuccess is a success toast (emerald)
	ToastKindSuccess
)

// Auto-dismiss durations per kind. Errors stay longer so they can be read.
const (
	DefaultToastDuration = 4 * time.Second
	ErrorToastDuration   = 8 * time.Second
	WarningToastDuration = 6 * time.Second
)

// MaxToasts is the number of toasts visible at once.
const MaxToasts = 5

// Toast is a non-blocking notification shown in the corner of the screen.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

func newToast(message string, kind ToastKind, d time.Duration) Toast {
	return Toast{
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
		Duration:  d,
	}
}

// NewErrorToast creates an error toast.
func NewErrorToast(message string) Toast {
	return newToast(message, ToastKindError, ErrorToastDuration)
}

// NewWarningToast creates a warning toast.
func NewWarningToast(message string) Toast {
	return newToast(message, ToastKindWarning, WarningToastDuration)
}

// NewStatusToast creates an informational toast.
func NewStatusToast(message string) Toast {
	return newToast(message, ToastKindStatus, DefaultToastDuration)
}

// NewSuccessToast creates a success toast.
func NewSuccessToast(message string) Toast {
	return newToast(message, ToastKindSuccess, DefaultToastDuration)
}

// ExpiredAt reports whether the toast should be gone at now.
func (t Toast) ExpiredAt(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// RemainingAt returns how long the toast stays visible after now.
func (t Toast) RemainingAt(now time.Time) time.Duration {
	remaining := t.Duration - now.Sub(t.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager holds the visible toasts, newest first.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	max    int
}

// NewToastManager creates an empty manager.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, max: MaxToasts}
}

// Add pushes toast to the front of the stack and returns its id. The
// oldest toasts are dropped past MaxToasts.
func (m *ToastManager) Add(toast Toast) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	toast.ID = m.nextID
	m.nextID++
	if toast.CreatedAt.IsZero() {
		toast.CreatedAt = time.Now()
	}

	m.toasts = append([]Toast{toast}, m.toasts...)
	if len(m.toasts) > m.max {
		m.toasts = m.toasts[:m.max]
	}
	return toast.ID
}

// AddError adds an error toast.
func (m *ToastManager) AddError(message string) int {
	return m.Add(NewErrorToast(message))
}

// AddWarning adds a warning toast.
func (m *ToastManager) AddWarning(message string) int {
	return m.Add(NewWarningToast(message))
}

// AddStatus adds a status toast.
func (m *ToastManager) AddStatus(message string) int {
	return m.Add(NewStatusToast(message))
}

// AddSuccess adds a success toast.
func (m *ToastManager) AddSuccess(message string) int {
	return m.Add(NewSuccessToast(message))
}

// Dismiss removes a toast by id.
func (m *ToastManager) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, toast := range m.toasts {
		if toast.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Expire drops the toasts that have run out at now and reports whether
// any remain.
func (m *ToastManager) Expire(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.toasts[:0]
	for _, toast := range m.toasts {
		if !toast.ExpiredAt(now) {
			active = append(active, toast)
		}
	}
	m.toasts = active
	return len(m.toasts) > 0
}

// Toasts returns a copy of the visible toasts, newest first.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// Len returns the number of visible toasts.
func (m *ToastManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts)
}

// Clear removes all toasts.
func (m *ToastManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = nil
}

// =============================================================================
// TOAST MESSAGES
// =============================================================================

// ToastTickMsg is sent periodically to expire toasts.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts every 100ms.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

func toastLook(kind ToastKind) (lipgloss.AdaptiveColor, string) {
	switch kind {
	case ToastKindError:
		return styles.Rose, styles.StatusIndicators.Error
	case ToastKindWarning:
		return styles.Amber, styles.StatusIndicators.Warning
	case ToastKindSuccess:
		return styles.Emerald, styles.StatusIndicators.Success
	default:
		return styles.Cyan, styles.StatusIndicators.Info
	}
}

// RenderToast renders one toast no wider than width.
func RenderToast(toast Toast, width int, now time.Time) string {
	maxWidth := 60
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	if maxWidth < 30 {
		maxWidth = 30
	}

	color, icon := toastLook(toast.Kind)
	iconStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	messageStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary)
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)

	content := iconStyle.Render(icon+" ") + messageStyle.Render(wrapText(toast.Message, maxWidth-10))

	hints := []string{"[x] Dismiss"}
	if secs := int(toast.RemainingAt(now).Seconds()); secs > 0 {
		hints = append(hints, strconv.Itoa(secs)+"s")
	}
	content += "\n" + hintStyle.Render(strings.Join(hints, "  "))

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 2).
		MaxWidth(maxWidth).
		Render(content)
}

// RenderToastStack renders toasts right-aligned, newest on top.
func RenderToastStack(toasts []Toast, width int, now time.Time) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for _, toast := range toasts {
		rendered = append(rendered, RenderToast(toast, width, now))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width <= 0 {
		return stack
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}
