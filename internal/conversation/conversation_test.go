package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_AppendPreservesOrder(t *testing.T) {
	s := NewState()
	s.Append(Message{Role: RoleUser, Content: "What is 2+2?"})
	s.Append(Message{Role: RoleAssistant, Content: "4, great job!"})

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, RoleUser, msgs[0].Role)
	require.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestState_MessagesReturnsCopy(t *testing.T) {
	s := NewState()
	s.Append(Message{Role: RoleUser, Content: "hi"})

	msgs := s.Messages()
	msgs[0].Content = "mutated"
	require.Equal(t, "hi", s.Messages()[0].Content)
}

func TestState_RenderHistory(t *testing.T) {
	s := NewState()
	require.Equal(t, "", s.RenderHistory())

	s.Append(Message{Role: RoleUser, Content: "What is 2+2?"})
	s.Append(Message{Role: RoleAssistant, Content: "4, great job!"})
	require.Equal(t, "Human: What is 2+2?\nAI: 4, great job!", s.RenderHistory())
}

func TestState_ClearThenRenderIsEmpty(t *testing.T) {
	s := NewState()
	for i := 0; i < 50; i++ {
		s.Append(Message{Role: RoleUser, Content: "q"})
		s.Append(Message{Role: RoleAssistant, Content: "a"})
	}
	require.Equal(t, 100, s.Len())

	s.Clear()
	require.Equal(t, 0, s.Len())
	require.Equal(t, "", s.RenderHistory())
}
