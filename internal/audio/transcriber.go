// Package audio bridges the assistant to the OpenAI audio endpoints:
// speech-to-text for recorded questions and text-to-speech for replies.
// Both adapters are stateless; audio is passed as in-memory buffers, no
// temporary files.
package audio

import (
	"bytes"
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lgarcia/studybuddy/internal/config"
	"github.com/lgarcia/studybuddy/internal/llm"
	"github.com/lgarcia/studybuddy/internal/logger"
)

// Transcriber converts recorded audio into text.
type Transcriber struct {
	client   llm.Client
	model    string
	language string
}

// NewTranscriber creates a speech-to-text adapter backed by the OpenAI
// transcription API.
func NewTranscriber(client llm.Client, cfg config.AudioConfig) *Transcriber {
	return &Transcriber{
		client:   client,
		model:    cfg.TranscriptionModel,
		language: cfg.Language,
	}
}

// Transcribe returns the best-effort transcript of the given audio bytes.
// It never fails from the caller's perspective: API errors, empty input, and
// whitespace-only results all collapse to the empty string sentinel, which
// the turn pipeline treats as "no input".
func (t *Transcriber) Transcribe(ctx context.Context, data []byte) string {
	if len(data) == 0 {
		return ""
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(data),
		FilePath: "recording.wav",
		Language: t.language,
	})
	if err != nil {
		logger.L.Warn("transcription failed", "error", err, "bytes", len(data))
		return ""
	}

	return strings.TrimSpace(resp.Text)
}
