// Package server exposes the interactive assistant page: an embedded
// single-page UI over HTTP and one WebSocket per session carrying turns.
// Turns on a connection are processed strictly sequentially; one user
// interaction is fully resolved before the next is read.
package server

import (
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/lgarcia/studybuddy/internal/logger"
	"github.com/lgarcia/studybuddy/internal/persona"
	"github.com/lgarcia/studybuddy/internal/pipeline"
	"github.com/lgarcia/studybuddy/internal/session"
)

//go:embed web/index.html
var indexHTML []byte

// Server serves the assistant page and its WebSocket sessions.
type Server struct {
	pipe     *pipeline.Pipeline
	upgrader websocket.Upgrader
}

// New creates a server around the given turn pipeline.
func New(pipe *pipeline.Pipeline) *Server {
	return &Server{
		pipe: pipe,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 16,
			// The page and the socket are same-origin; this is a
			// single-user local app, not a public deployment.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleWS owns one session for the lifetime of the connection. All reads
// and writes happen on this goroutine, so session state has a single writer.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := session.New()
	logger.L.Info("session started", "session", sess.ID)
	defer logger.L.Info("session ended", "session", sess.ID)

	s.send(conn, MsgPersonas, PersonasPayload{
		Names:  sess.Personas.Names(),
		Active: sess.Personas.Active().Name,
	})

	ctx := context.Background()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msgType, raw, err := unmarshalMessage(data)
		if err != nil {
			s.send(conn, MsgError, ErrorPayload{Message: "malformed message"})
			continue
		}

		switch msgType {
		case MsgAsk:
			ask, err := unmarshalPayload[AskPayload](raw)
			if err != nil {
				s.send(conn, MsgError, ErrorPayload{Message: "malformed question"})
				continue
			}
			s.runTurn(ctx, conn, sess, ask.Text)

		case MsgAudio:
			payload, err := unmarshalPayload[AudioPayload](raw)
			if err != nil {
				s.send(conn, MsgError, ErrorPayload{Message: "malformed audio message"})
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(payload.Data)
			if err != nil {
				s.send(conn, MsgError, ErrorPayload{Message: "audio is not valid base64"})
				continue
			}
			s.runVoiceTurn(ctx, conn, sess, audio)

		case MsgPersona:
			p, err := unmarshalPayload[PersonaPayload](raw)
			if err != nil {
				s.send(conn, MsgError, ErrorPayload{Message: "malformed persona message"})
				continue
			}
			if p.Name == persona.CustomName {
				sess.Personas.SetCustom(p.Custom)
			}
			if !sess.Personas.SetActive(p.Name) {
				s.send(conn, MsgError, ErrorPayload{Message: "unknown persona: " + p.Name})
			}

		case MsgClear:
			sess.State.Clear()
			s.send(conn, MsgCleared, nil)

		default:
			s.send(conn, MsgError, ErrorPayload{Message: "unknown message type: " + string(msgType)})
		}
	}
}

// runTurn processes one typed question and reports the outcome inline.
func (s *Server) runTurn(ctx context.Context, conn *websocket.Conn, sess *session.Session, text string) {
	turn, err := s.pipe.ProcessTurn(ctx, sess, text)
	if errors.Is(err, pipeline.ErrEmptyInput) {
		return
	}
	if err != nil {
		s.send(conn, MsgError, ErrorPayload{Message: "An error occurred with the chat API: " + err.Error()})
		return
	}
	s.send(conn, MsgAnswer, answerPayload(turn))
}

// runVoiceTurn transcribes one recording and processes the result. Empty
// transcriptions are silently absorbed.
func (s *Server) runVoiceTurn(ctx context.Context, conn *websocket.Conn, sess *session.Session, audio []byte) {
	question, turn, err := s.pipe.ProcessVoiceTurn(ctx, sess, audio)
	if errors.Is(err, pipeline.ErrNoSpeech) {
		return
	}

	// The client has no text for a voice question until we echo it.
	s.send(conn, MsgTranscript, TranscriptPayload{Text: question})

	if err != nil {
		s.send(conn, MsgError, ErrorPayload{Message: "An error occurred with the chat API: " + err.Error()})
		return
	}
	s.send(conn, MsgAnswer, answerPayload(turn))
}

func answerPayload(turn *pipeline.Turn) AnswerPayload {
	out := AnswerPayload{Text: turn.Answer}
	if turn.SynthesisErr != nil {
		out.AudioError = turn.SynthesisErr.Error()
	} else {
		out.Audio = base64.StdEncoding.EncodeToString(turn.Audio)
	}
	return out
}

func (s *Server) send(conn *websocket.Conn, msgType MessageType, payload any) {
	data, err := marshalMessage(msgType, payload)
	if err != nil {
		logger.L.Error("marshal message failed", "type", msgType, "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.L.Warn("websocket write failed", "type", msgType, "error", err)
	}
}
