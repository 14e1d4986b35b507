// Package intent turns free-form customer messages into structured booking
// commands. Extraction is best-effort and language-aware; execution semantics
// live elsewhere.
package intent

import "strings"

// Kind identifies what a command asks the system to do.
type Kind string

const (
	KindBook          Kind = "book"
	KindModify        Kind = "modify"
	KindCancel        Kind = "cancel"
	KindList          Kind = "list"
	KindSaveAttribute Kind = "save_attribute"
)

// Known reports whether k is a kind the executor understands.
func (k Kind) Known() bool {
	switch k {
	case KindBook, KindModify, KindCancel, KindList, KindSaveAttribute:
		return true
	}
	return false
}

// Command is one extracted instruction. Fields are filled per kind:
// book needs ServiceCode/Date/Time; modify and cancel carry a TargetRef
// pointing at an existing appointment plus, for modify, the new slot;
// save_attribute carries Attribute/Value.
type Command struct {
	Kind Kind `json:"kind"`

	ServiceCode string `json:"service_code,omitempty"`
	Date        string `json:"date,omitempty"` // YYYY-MM-DD
	Time        string `json:"time,omitempty"` // HH:MM

	// TargetRef is a natural reference to an existing appointment:
	// "today", "tomorrow", a date, a time like "15:00", or "last" for the
	// appointment handled earlier in the same message.
	TargetRef string `json:"target_ref,omitempty"`

	// Option is a 1-based pick from the alternatives offered in the
	// previous turn ("va bene la seconda").
	Option int `json:"option,omitempty"`

	Attribute string `json:"attribute,omitempty"` // "name" | "language"
	Value     string `json:"value,omitempty"`
}

// Batch is every command extracted from a single inbound message, in the
// order the customer expressed them.
type Batch struct {
	Commands []Command
	Language string // detected message language, "it" or "en"
}

// Empty reports whether extraction found nothing actionable.
func (b Batch) Empty() bool { return len(b.Commands) == 0 }

// normalize lowercases and collapses whitespace for matching.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
