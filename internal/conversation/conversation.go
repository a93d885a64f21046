// Package conversation holds the ordered transcript of one interactive
// session and renders it as the history block injected into the next prompt.
// State lives only for the session: there is no persistence and no size
// bound (unbounded growth is a known limitation).
package conversation

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single transcript entry. Immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is the ordered transcript of exchanged messages.
type State struct {
	messages []Message
}

// NewState returns an empty transcript.
func NewState() *State {
	return &State{}
}

// Append adds a message to the end of the transcript.
func (s *State) Append(msg Message) {
	s.messages = append(s.messages, msg)
}

// Messages returns a copy of the transcript in chronological order.
func (s *State) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of transcript entries.
func (s *State) Len() int {
	return len(s.messages)
}

// Clear empties the transcript. No partial-clear state is observable.
func (s *State) Clear() {
	s.messages = nil
}

// RenderHistory serializes the transcript into the history block of the
// prompt template, one "Human:"/"AI:" line per message. Pure function of
// current state; empty transcript renders as the empty string.
func (s *State) RenderHistory() string {
	if len(s.messages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range s.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch m.Role {
		case RoleUser:
			b.WriteString("Human: ")
		case RoleAssistant:
			b.WriteString("AI: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
