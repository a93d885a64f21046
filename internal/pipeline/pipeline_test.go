package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/lgarcia/studybuddy/internal/config"
	"github.com/lgarcia/studybuddy/internal/conversation"
	"github.com/lgarcia/studybuddy/internal/persona"
	"github.com/lgarcia/studybuddy/internal/session"
)

type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	requests []openai.ChatCompletionRequest
	err      error
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured")
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

func (m *mockLLM) CreateTranscription(ctx context.Context, r openai.AudioRequest) (openai.AudioResponse, error) {
	return openai.AudioResponse{}, errors.New("not used")
}

func (m *mockLLM) CreateSpeech(ctx context.Context, r openai.CreateSpeechRequest) (openai.RawResponse, error) {
	return openai.RawResponse{}, errors.New("not used")
}

func (m *mockLLM) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return openai.ModelsList{}, errors.New("not used")
}

type mockSTT struct {
	text string
}

func (m *mockSTT) Transcribe(ctx context.Context, data []byte) string { return m.text }

type mockTTS struct {
	audio []byte
	err   error
	calls int
}

func (m *mockTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.calls++
	return m.audio, m.err
}

func reply(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: text}}},
	}
}

func newPipeline(llmMock *mockLLM, stt *mockSTT, tts *mockTTS) *Pipeline {
	return New(llmMock, stt, tts, config.LLMConfig{Model: "gpt-4o-mini", Temperature: 0.7})
}

// The canonical scenario: persona instructions + empty history + the question
// reach the model, and the transcript ends up with exactly one user/assistant pair.
func TestProcessTurn_Success(t *testing.T) {
	llmMock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("4, great job!")}}
	ttsMock := &mockTTS{audio: []byte("mp3")}
	p := newPipeline(llmMock, &mockSTT{}, ttsMock)
	sess := session.New()

	turn, err := p.ProcessTurn(context.Background(), sess, "What is 2+2?")
	require.NoError(t, err)
	require.Equal(t, "4, great job!", turn.Answer)
	require.Equal(t, []byte("mp3"), turn.Audio)
	require.NoError(t, turn.SynthesisErr)

	msgs := sess.State.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, conversation.Message{Role: conversation.RoleUser, Content: "What is 2+2?"}, msgs[0])
	require.Equal(t, conversation.Message{Role: conversation.RoleAssistant, Content: "4, great job!"}, msgs[1])

	require.Len(t, llmMock.requests, 1)
	prompt := llmMock.requests[0].Messages[0].Content
	require.Contains(t, prompt, "friendly and knowledgeable study buddy")
	require.Contains(t, prompt, "Conversation History:\n\n")
	require.Contains(t, prompt, "Human: What is 2+2?\nAI:")
	require.InDelta(t, 0.7, llmMock.requests[0].Temperature, 1e-6)
}

func TestProcessTurn_HistoryCarriedIntoNextPrompt(t *testing.T) {
	llmMock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("4"), reply("8")}}
	p := newPipeline(llmMock, &mockSTT{}, &mockTTS{audio: []byte("a")})
	sess := session.New()

	_, err := p.ProcessTurn(context.Background(), sess, "What is 2+2?")
	require.NoError(t, err)
	_, err = p.ProcessTurn(context.Background(), sess, "And doubled?")
	require.NoError(t, err)

	second := llmMock.requests[1].Messages[0].Content
	require.Contains(t, second, "Human: What is 2+2?\nAI: 4")
	require.Contains(t, second, "Human: And doubled?\nAI:")
}

// After N successful turns the transcript holds exactly 2N messages in
// strict alternating user/assistant order.
func TestProcessTurn_AlternatingTranscript(t *testing.T) {
	const n = 5
	llmMock := &mockLLM{}
	for i := 0; i < n; i++ {
		llmMock.calls = append(llmMock.calls, reply("answer"))
	}
	p := newPipeline(llmMock, &mockSTT{}, &mockTTS{audio: []byte("a")})
	sess := session.New()

	for i := 0; i < n; i++ {
		_, err := p.ProcessTurn(context.Background(), sess, "question")
		require.NoError(t, err)
	}

	msgs := sess.State.Messages()
	require.Len(t, msgs, 2*n)
	for i, m := range msgs {
		if i%2 == 0 {
			require.Equal(t, conversation.RoleUser, m.Role)
		} else {
			require.Equal(t, conversation.RoleAssistant, m.Role)
		}
	}
}

// A failed model call appends exactly the user's message: the question stays
// visible, no assistant reply is fabricated, and the next turn still works.
func TestProcessTurn_ModelFailureLeavesOrphanQuestion(t *testing.T) {
	llmMock := &mockLLM{err: errors.New("quota exceeded")}
	tts := &mockTTS{audio: []byte("a")}
	p := newPipeline(llmMock, &mockSTT{}, tts)
	sess := session.New()

	_, err := p.ProcessTurn(context.Background(), sess, "Will this fail?")
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota exceeded")

	msgs := sess.State.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, conversation.RoleUser, msgs[0].Role)
	require.Equal(t, 0, tts.calls)

	// Next turn proceeds normally.
	llmMock.err = nil
	llmMock.calls = []openai.ChatCompletionResponse{reply("recovered")}
	turn, err := p.ProcessTurn(context.Background(), sess, "Still there?")
	require.NoError(t, err)
	require.Equal(t, "recovered", turn.Answer)
	require.Equal(t, 3, sess.State.Len())
}

func TestProcessTurn_EmptyInputIsNoOp(t *testing.T) {
	llmMock := &mockLLM{}
	p := newPipeline(llmMock, &mockSTT{}, &mockTTS{})
	sess := session.New()

	_, err := p.ProcessTurn(context.Background(), sess, "   \n ")
	require.ErrorIs(t, err, ErrEmptyInput)
	require.Equal(t, 0, sess.State.Len())
	require.Empty(t, llmMock.requests)
}

// Synthesis failure after a successful model call still yields the answer.
func TestProcessTurn_SynthesisFailureIsNonFatal(t *testing.T) {
	llmMock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("text only")}}
	p := newPipeline(llmMock, &mockSTT{}, &mockTTS{err: errors.New("tts down")})
	sess := session.New()

	turn, err := p.ProcessTurn(context.Background(), sess, "hello")
	require.NoError(t, err)
	require.Equal(t, "text only", turn.Answer)
	require.Nil(t, turn.Audio)
	require.Error(t, turn.SynthesisErr)
	require.Equal(t, 2, sess.State.Len())
}

// Switching the active persona changes the prompt instructions, not the transcript.
func TestProcessTurn_PersonaSwitchKeepsTranscript(t *testing.T) {
	llmMock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("one"), reply("two")}}
	p := newPipeline(llmMock, &mockSTT{}, &mockTTS{audio: []byte("a")})
	sess := session.New()

	_, err := p.ProcessTurn(context.Background(), sess, "first")
	require.NoError(t, err)
	before := sess.State.Messages()

	require.True(t, sess.Personas.SetActive("Sarcastic Assistant"))
	require.Equal(t, before, sess.State.Messages())

	_, err = p.ProcessTurn(context.Background(), sess, "second")
	require.NoError(t, err)
	prompt := llmMock.requests[1].Messages[0].Content
	require.Contains(t, prompt, "sarcastic assistant")
	require.Contains(t, prompt, "Human: first\nAI: one")
}

func TestProcessTurn_CustomPersonaUsedVerbatim(t *testing.T) {
	llmMock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("arr")}}
	p := newPipeline(llmMock, &mockSTT{}, &mockTTS{audio: []byte("a")})
	sess := session.New()
	sess.Personas.SetCustom("You are a pirate.")
	require.True(t, sess.Personas.SetActive(persona.CustomName))

	_, err := p.ProcessTurn(context.Background(), sess, "hello")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(llmMock.requests[0].Messages[0].Content, "You are a pirate.\n\n"))
}

func TestProcessVoiceTurn_Success(t *testing.T) {
	llmMock := &mockLLM{calls: []openai.ChatCompletionResponse{reply("hi there")}}
	p := newPipeline(llmMock, &mockSTT{text: "hello assistant"}, &mockTTS{audio: []byte("a")})
	sess := session.New()

	question, turn, err := p.ProcessVoiceTurn(context.Background(), sess, []byte("wavdata"))
	require.NoError(t, err)
	require.Equal(t, "hello assistant", question)
	require.Equal(t, "hi there", turn.Answer)
	require.Equal(t, 2, sess.State.Len())

	// The pending transcription slot must not survive the cycle.
	require.Equal(t, "", sess.TakePendingTranscript())
}

// Empty transcription: no transcript mutation, no model call.
func TestProcessVoiceTurn_EmptyTranscriptionIsSilentNoOp(t *testing.T) {
	llmMock := &mockLLM{}
	p := newPipeline(llmMock, &mockSTT{text: ""}, &mockTTS{})
	sess := session.New()

	_, _, err := p.ProcessVoiceTurn(context.Background(), sess, []byte("static"))
	require.ErrorIs(t, err, ErrNoSpeech)
	require.Equal(t, 0, sess.State.Len())
	require.Empty(t, llmMock.requests)
}

// A failed voice turn still reports what the user asked.
func TestProcessVoiceTurn_ModelFailureStillReturnsQuestion(t *testing.T) {
	llmMock := &mockLLM{err: errors.New("network down")}
	p := newPipeline(llmMock, &mockSTT{text: "doomed question"}, &mockTTS{})
	sess := session.New()

	question, turn, err := p.ProcessVoiceTurn(context.Background(), sess, []byte("wav"))
	require.Error(t, err)
	require.Nil(t, turn)
	require.Equal(t, "doomed question", question)
	require.Equal(t, 1, sess.State.Len())
}
