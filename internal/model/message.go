// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single chat turn.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`

	// CostUSD is nil when the backend did not report a cost.
	CostUSD *float64 `json:"cost_usd,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// IsAssistant reports whether the message came from the assistant.
func (m *Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// HasCost reports whether a positive cost is known.
func (m *Message) HasCost() bool {
	return m.CostUSD != nil && *m.CostUSD > 0
}

// FormatCost renders the cost with four decimals, or "" when unknown or zero.
func (m *Message) FormatCost() string {
	if !m.HasCost() {
		return ""
	}
	return fmt.Sprintf("$%.4f", *m.CostUSD)
}

// CitationByNumber returns the first citation with the given number.
func (m *Message) CitationByNumber(n int) (Citation, bool) {
	for _, c := range m.Citations {
		if c.Number == n {
			return c, true
		}
	}
	return Citation{}, false
}
