// Package pipeline orchestrates one conversational turn: prompt assembly
// from the active persona and the running history, a single blocking model
// call, transcript updates, and best-effort speech synthesis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/qmuntal/stateless"

	"github.com/lgarcia/studybuddy/internal/config"
	"github.com/lgarcia/studybuddy/internal/conversation"
	"github.com/lgarcia/studybuddy/internal/llm"
	"github.com/lgarcia/studybuddy/internal/logger"
	"github.com/lgarcia/studybuddy/internal/session"
)

// FSM States
type FSMState stateless.State

var (
	StateIdle              FSMState = "Idle"
	StatePromptAssembled   FSMState = "PromptAssembled"
	StateModelInvoked      FSMState = "ModelInvoked"
	StateAnswered          FSMState = "Answered"
	StateSynthesizingAudio FSMState = "SynthesizingAudio"
	StateDone              FSMState = "Done"   // Terminal: successful completion
	StateFailed            FSMState = "Failed" // Terminal: model call failed
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerInputReceived      FSMTrigger = "InputReceived"
	TriggerPromptReady        FSMTrigger = "PromptReady"
	TriggerModelAnswered      FSMTrigger = "ModelAnswered"
	TriggerModelFailed        FSMTrigger = "ModelFailed"
	TriggerSynthesisRequested FSMTrigger = "SynthesisRequested"
	TriggerTurnFinished       FSMTrigger = "TurnFinished"
)

var (
	// ErrEmptyInput marks a turn invoked with empty or whitespace-only text.
	// Callers must treat it as "no input": no transcript mutation happened.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoSpeech marks a voice turn whose transcription came back empty.
	// Silently absorbed: no transcript entry, no model call.
	ErrNoSpeech = errors.New("no speech detected")
)

// promptTemplate has two placeholders: history and question. The active
// persona's instructions are prepended.
const promptTemplate = "%s\n\nConversation History:\n%s\n\nHuman: %s\nAI:"

// SpeechToText converts recorded audio into text, returning the empty
// string when nothing usable was said.
type SpeechToText interface {
	Transcribe(ctx context.Context, data []byte) string
}

// TextToSpeech converts reply text into playable audio bytes.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Turn is the outcome of one successful pipeline cycle. Audio is nil when
// synthesis failed; the failure is recorded in SynthesisErr and does not
// fail the turn.
type Turn struct {
	Question     string
	Answer       string
	Audio        []byte
	SynthesisErr error
}

// Pipeline processes turns. One model call per turn, fixed temperature,
// no retries, no timeout.
type Pipeline struct {
	llmClient   llm.Client
	stt         SpeechToText
	tts         TextToSpeech
	model       string
	temperature float32
}

// New creates a turn pipeline.
func New(llmClient llm.Client, stt SpeechToText, tts TextToSpeech, cfg config.LLMConfig) *Pipeline {
	return &Pipeline{
		llmClient:   llmClient,
		stt:         stt,
		tts:         tts,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// ProcessTurn runs one turn for the given session and returns the reply.
//
// The user message is appended to the transcript before the model call; a
// failed call leaves the question visible without a fabricated answer. This
// ordering is deliberate and observable, do not reorder.
func (p *Pipeline) ProcessTurn(ctx context.Context, sess *session.Session, userText string) (*Turn, error) {
	question := strings.TrimSpace(userText)
	if question == "" {
		return nil, ErrEmptyInput
	}

	// FSM context data
	type fsmContext struct {
		prompt    string
		answer    string
		audio     []byte
		audioErr  error
		lastError error
	}
	fsmCtx := &fsmContext{}

	fsm := stateless.NewStateMachine(StateIdle)

	fsm.Configure(StateIdle).
		Permit(TriggerInputReceived, StatePromptAssembled)

	// State: PromptAssembled
	// Action: build the prompt from persona instructions, rendered history,
	// and the new question.
	fsm.Configure(StatePromptAssembled).
		OnEntry(func(ctx context.Context, args ...any) error {
			active := sess.Personas.Active()
			history := sess.State.RenderHistory()
			fsmCtx.prompt = fmt.Sprintf(promptTemplate, active.SystemPrompt, history, question)
			logger.L.Debug("prompt assembled", "session", sess.ID, "persona", active.Name, "history_len", len(history))
			return fsm.FireCtx(ctx, TriggerPromptReady)
		}).
		Permit(TriggerPromptReady, StateModelInvoked)

	// State: ModelInvoked
	// Action: append the user message, then make the single blocking model call.
	fsm.Configure(StateModelInvoked).
		OnEntry(func(ctx context.Context, args ...any) error {
			sess.State.Append(conversation.Message{Role: conversation.RoleUser, Content: question})

			resp, err := p.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       p.model,
				Temperature: p.temperature,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleUser, Content: fsmCtx.prompt},
				},
			})
			if err != nil {
				logger.L.Error("model call failed", "session", sess.ID, "error", err)
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerModelFailed)
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
				fsmCtx.lastError = errors.New("model returned no content")
				return fsm.FireCtx(ctx, TriggerModelFailed)
			}
			fsmCtx.answer = resp.Choices[0].Message.Content
			return fsm.FireCtx(ctx, TriggerModelAnswered)
		}).
		Permit(TriggerModelAnswered, StateAnswered).
		Permit(TriggerModelFailed, StateFailed)

	// State: Answered
	// Action: record the assistant reply, then request synthesis.
	fsm.Configure(StateAnswered).
		OnEntry(func(ctx context.Context, args ...any) error {
			sess.State.Append(conversation.Message{Role: conversation.RoleAssistant, Content: fsmCtx.answer})
			return fsm.FireCtx(ctx, TriggerSynthesisRequested)
		}).
		Permit(TriggerSynthesisRequested, StateSynthesizingAudio)

	// State: SynthesizingAudio
	// Action: best-effort speech synthesis; failure does not fail the turn.
	fsm.Configure(StateSynthesizingAudio).
		OnEntry(func(ctx context.Context, args ...any) error {
			audio, err := p.tts.Synthesize(ctx, fsmCtx.answer)
			if err != nil {
				logger.L.Warn("speech synthesis failed", "session", sess.ID, "error", err)
				fsmCtx.audioErr = err
			} else {
				fsmCtx.audio = audio
			}
			return fsm.FireCtx(ctx, TriggerTurnFinished)
		}).
		Permit(TriggerTurnFinished, StateDone)

	// Terminal states: Done (success) and Failed (model error). Nothing is
	// carried across terminal -> Idle beyond the transcript.
	fsm.Configure(StateDone)
	fsm.Configure(StateFailed)

	if fireErr := fsm.FireCtx(ctx, TriggerInputReceived); fireErr != nil {
		logger.L.Error("turn state machine error", "session", sess.ID, "error", fireErr)
		return nil, fmt.Errorf("turn state machine: %w", fireErr)
	}

	currentState, err := fsm.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("turn state machine: %w", err)
	}

	switch currentState {
	case StateDone:
		return &Turn{
			Question:     question,
			Answer:       fsmCtx.answer,
			Audio:        fsmCtx.audio,
			SynthesisErr: fsmCtx.audioErr,
		}, nil
	case StateFailed:
		return nil, fsmCtx.lastError
	default:
		return nil, fmt.Errorf("turn ended in unexpected state: %v", currentState)
	}
}

// ProcessVoiceTurn transcribes recorded audio and runs the resulting text
// through ProcessTurn. The transcript text is returned even when the model
// call fails, so the caller can still render the question. An empty
// transcription yields ErrNoSpeech with no transcript mutation.
func (p *Pipeline) ProcessVoiceTurn(ctx context.Context, sess *session.Session, audio []byte) (string, *Turn, error) {
	text := p.stt.Transcribe(ctx, audio)
	if text == "" {
		return "", nil, ErrNoSpeech
	}

	sess.SetPendingTranscript(text)
	question := sess.TakePendingTranscript()

	turn, err := p.ProcessTurn(ctx, sess, question)
	return question, turn, err
}
