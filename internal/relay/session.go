package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/agent"
	"github.com/quantbrew/algochat/internal/stream"
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// session is one browser tab's connection. All outbound chunks funnel
// through the send queue so exactly one goroutine writes to the socket,
// which is what gorilla/websocket requires.
type session struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger

	out       chan stream.Chunk
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(id string, conn *websocket.Conn, logger *zap.Logger) *session {
	return &session{
		id:     id,
		conn:   conn,
		logger: logger,
		out:    make(chan stream.Chunk, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// send queues a chunk for delivery. Chunks are dropped once the session is
// closing; a closed tab has no use for them.
func (s *session) send(c stream.Chunk) {
	select {
	case <-s.done:
	case s.out <- c:
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case chunk := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(chunk); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				s.close()
				return
			}
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
		s.logger.Info("session closed")
	})
}

// inbound is the browser-to-relay message shape.
type inbound struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// run processes user turns until the connection drops. Turns are strictly
// sequential: the next user message is not read until the current turn has
// fully streamed out.
func (s *session) run(ctx context.Context, ag *agent.Agent) {
	s.logger.Info("session started")
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Error("invalid message from client", zap.Error(err))
			s.send(stream.Chunk{Role: "system", Content: "Error: Invalid message format."})
			continue
		}
		query := strings.TrimSpace(msg.Content)
		if query == "" {
			continue
		}

		s.runTurn(ctx, ag, query)
	}
}

// runTurn executes one conversation turn. Failures end the turn with a
// system notification and never leave a partial assistant message open.
func (s *session) runTurn(ctx context.Context, ag *agent.Agent, query string) {
	s.send(stream.Chunk{Role: "system", Content: stream.ProcessingNotice})

	streamed := false
	answer, err := ag.Run(ctx, query, func(fragment string) {
		streamed = true
		s.send(stream.Chunk{Role: "assistant", Content: fragment, Partial: true})
	})
	if err != nil {
		s.logger.Error("turn failed", zap.Error(err))
		if streamed {
			// Seal the open stream before reporting so no bubble is left open.
			s.send(stream.Chunk{Role: "assistant", Content: ""})
		}
		s.send(stream.Chunk{Role: "system", Content: fmt.Sprintf("Error: %v", err)})
		return
	}

	if streamed {
		s.send(stream.Chunk{Role: "assistant", Content: ""})
	} else if answer != "" {
		s.send(stream.Chunk{Role: "assistant", Content: answer})
	}
}
