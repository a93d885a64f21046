package server

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// MessageType enumerates all WebSocket message types.
type MessageType string

const (
	// Client -> server
	MsgAsk     MessageType = "ask"
	MsgAudio   MessageType = "audio"
	MsgPersona MessageType = "persona"
	MsgClear   MessageType = "clear"

	// Server -> client
	MsgPersonas   MessageType = "personas"
	MsgTranscript MessageType = "transcript"
	MsgAnswer     MessageType = "answer"
	MsgError      MessageType = "error"
	MsgCleared    MessageType = "cleared"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AskPayload carries a typed question.
type AskPayload struct {
	Text string `json:"text"`
}

// AudioPayload carries one voice recording, base64-encoded.
type AudioPayload struct {
	Data string `json:"data"`
}

// PersonaPayload selects the active persona. Custom is only read when Name
// is the custom slot.
type PersonaPayload struct {
	Name   string `json:"name"`
	Custom string `json:"custom,omitempty"`
}

// PersonasPayload is sent on connect: the selector list and the active name.
type PersonasPayload struct {
	Names  []string `json:"names"`
	Active string   `json:"active"`
}

// TranscriptPayload echoes the transcribed text of a voice recording so the
// client can render the question it is about to ask.
type TranscriptPayload struct {
	Text string `json:"text"`
}

// AnswerPayload carries one assistant reply. Audio is base64 MP3 and is
// empty when synthesis failed; AudioError then explains why.
type AnswerPayload struct {
	Text       string `json:"text"`
	Audio      string `json:"audio,omitempty"`
	AudioError string `json:"audio_error,omitempty"`
}

// ErrorPayload is an inline error notice for one failed turn.
type ErrorPayload struct {
	Message string `json:"message"`
}

// marshalMessage creates a JSON-encoded Envelope from a message type and payload.
func marshalMessage(msgType MessageType, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload for %q: %w", msgType, err)
		}
		raw = b
	}
	return sonic.Marshal(Envelope{Type: msgType, Payload: raw})
}

// unmarshalMessage parses a JSON-encoded Envelope, returning the message
// type and raw payload.
func unmarshalMessage(data []byte) (MessageType, json.RawMessage, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("envelope missing type field")
	}
	return env.Type, env.Payload, nil
}

// unmarshalPayload decodes a raw JSON payload into a typed struct.
func unmarshalPayload[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := sonic.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("unmarshal payload: %w", err)
	}
	return v, nil
}
