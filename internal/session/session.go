// Package session ties together everything one interactive session owns:
// the persona registry, the conversation transcript, and the single-slot
// pending transcription. Passing the session explicitly keeps the turn
// pipeline reentrant across sessions.
package session

import (
	"github.com/google/uuid"

	"github.com/lgarcia/studybuddy/internal/conversation"
	"github.com/lgarcia/studybuddy/internal/persona"
)

// Session is the context object for one interactive session. It has exactly
// one writer (the turn pipeline) for its lifetime.
type Session struct {
	ID       uuid.UUID
	Personas *persona.Registry
	State    *conversation.State

	pendingTranscript string
}

// New creates a fresh session with an empty transcript and the default
// persona active.
func New() *Session {
	return &Session{
		ID:       uuid.New(),
		Personas: persona.NewRegistry(),
		State:    conversation.NewState(),
	}
}

// SetPendingTranscript stores text produced by speech-to-text for the next
// turn. At most one pending transcription exists at a time; a second call
// before consumption overwrites the first.
func (s *Session) SetPendingTranscript(text string) {
	s.pendingTranscript = text
}

// TakePendingTranscript returns the pending transcription and clears the
// slot, so it never outlives one pipeline cycle.
func (s *Session) TakePendingTranscript() string {
	text := s.pendingTranscript
	s.pendingTranscript = ""
	return text
}
