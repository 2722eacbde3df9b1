package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/michaelbrown/ibrl/internal/agent"
	"github.com/michaelbrown/ibrl/internal/annotate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the front-end is served from a different origin in development
	},
}

const (
	wsTypeMessage = "message"
	wsTypeChunk   = "chunk"
	wsTypeDone    = "done"
	wsTypeError   = "error"
)

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type        string                `json:"type"`
	Content     string                `json:"content,omitempty"`
	Annotations []annotate.Annotation `json:"annotations,omitempty"`
}

// socketWriter serializes writes; gorilla connections allow one writer at a time.
type socketWriter struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *slog.Logger
}

func (w *socketWriter) send(msg wsOutgoing) {
	data, err := json.Marshal(msg)
	if err != nil {
		w.logger.Error("websocket marshal error", "error", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		w.logger.Debug("websocket write error", "error", err)
	}
}

func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	as := s.sessions.Create()
	log := s.logger.With("session", as.ID)
	out := &socketWriter{conn: conn, logger: log}
	log.Info("chat session opened")

	var turns sync.WaitGroup
	defer func() {
		s.sessions.Remove(as.ID)
		turns.Wait()
		log.Info("chat session closed")
	}()

	// Read loop
	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read error", "error", err)
			}
			return
		}

		content := strings.TrimSpace(msg.Content)
		if msg.Type != wsTypeMessage || content == "" {
			out.send(wsOutgoing{Type: wsTypeError, Content: "invalid message"})
			continue
		}
		if !as.tryBegin() {
			out.send(wsOutgoing{Type: wsTypeError, Content: "a reply is still streaming"})
			continue
		}

		turns.Add(1)
		go func() {
			defer turns.Done()
			defer as.end()
			s.runTurn(as, out, log, content)
		}()
	}
}

// runTurn streams one reply as chunk messages, then reports done with the
// finished text and its explorer annotations, or an error.
func (s *Server) runTurn(as *ActiveSession, out *socketWriter, log *slog.Logger, content string) {
	ctx := as.Context()
	reply, err := as.Agent.Converse(ctx, as.Conversation, content, func(chunk string) {
		out.send(wsOutgoing{Type: wsTypeChunk, Content: chunk})
	})

	if err != nil {
		switch {
		case errors.Is(err, agent.ErrMissingCredential):
			out.send(wsOutgoing{Type: wsTypeError, Content: err.Error()})
		case ctx.Err() != nil:
			log.Debug("turn interrupted", "error", err)
			out.send(wsOutgoing{Type: wsTypeError, Content: "interrupted"})
		default:
			log.Warn("turn failed", "error", err)
			out.send(wsOutgoing{Type: wsTypeError, Content: "completion failed"})
		}
		return
	}

	out.send(wsOutgoing{Type: wsTypeDone, Content: reply, Annotations: annotate.Annotate(reply)})
}
