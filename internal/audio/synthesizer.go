package audio

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/lgarcia/studybuddy/internal/config"
	"github.com/lgarcia/studybuddy/internal/llm"
)

// Synthesizer converts reply text into playable audio.
type Synthesizer struct {
	client llm.Client
	model  string
	voice  string
	speed  float64
}

// NewSynthesizer creates a text-to-speech adapter backed by the OpenAI
// speech API. Output is MP3, playable inline by the browser.
func NewSynthesizer(client llm.Client, cfg config.AudioConfig) *Synthesizer {
	return &Synthesizer{
		client: client,
		model:  cfg.SpeechModel,
		voice:  cfg.Voice,
		speed:  cfg.Speed,
	}
}

// Synthesize generates MP3 audio for the given text. Failures are explicit
// but non-fatal to the turn: the textual reply is still shown to the user.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          s.speed,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading speech response: %w", err)
	}
	return data, nil
}
