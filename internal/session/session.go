package session

import (
	"time"

	"github.com/google/uuid"
)

// Roles of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in the conversation window.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Draft carries a partially-specified booking across turns. It survives
// turn-window eviction: "book a haircut" -> "what time?" -> "3pm" must still
// resolve after the opening turn has been evicted.
type Draft struct {
	ServiceCode string `json:"service_code,omitempty"`
	Date        string `json:"date,omitempty"` // "YYYY-MM-DD"
	Time        string `json:"time,omitempty"` // "HH:MM"
	Name        string `json:"name,omitempty"`
}

// Empty reports whether the draft carries no collected fields.
func (d Draft) Empty() bool {
	return d == Draft{}
}

// Session is the per-(tenant, customer) conversation state.
type Session struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Turns      []Turn    `json:"turns"`
	Pending    Draft     `json:"pending"`
	// Alternatives are the slots last offered after a conflict, so a
	// follow-up like "the second one" can be resolved next turn.
	Alternatives []time.Time `json:"alternatives,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Append adds a turn and evicts the oldest ones beyond the window bound.
// Only raw turns are evicted, never the pending draft.
func (s *Session) Append(role, text string, window int) {
	s.Turns = append(s.Turns, Turn{Role: role, Text: text, At: time.Now()})
	if window > 0 && len(s.Turns) > window {
		s.Turns = s.Turns[len(s.Turns)-window:]
	}
	s.UpdatedAt = time.Now()
}

// Recent returns the last n turns in chronological order.
func (s *Session) Recent(n int) []Turn {
	if n <= 0 || n >= len(s.Turns) {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}
