package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/protocol"
)

// sseSession is one connected SSE client. Server-to-client traffic is
// queued as pre-formatted event strings and drained by the GET handler.
type sseSession struct {
	id         string
	eventQueue chan string
	done       chan struct{}
	closeOnce  sync.Once
	closed     atomic.Bool
}

func newSSESession() *sseSession {
	return &sseSession{
		id:         uuid.NewString(),
		eventQueue: make(chan string, 100),
		done:       make(chan struct{}),
	}
}

func (s *sseSession) enqueue(event, data string) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	select {
	case s.eventQueue <- fmt.Sprintf("event: %s\ndata: %s\n\n", event, data):
		return nil
	case <-s.done:
		return fmt.Errorf("session closed")
	default:
		return fmt.Errorf("event queue full")
	}
}

func (s *sseSession) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
}

// SSEServer exposes a Server over the hybrid SSE transport: a GET stream for
// server-to-client messages and a POST endpoint for client-to-server ones.
type SSEServer struct {
	server      *Server
	logger      *zap.Logger
	sessions    sync.Map // session ID -> *sseSession
	ssePath     string
	messagePath string
}

// SSEOptions configure an SSEServer. Zero values use the default endpoints.
type SSEOptions struct {
	SSEPath     string // default "/sse"
	MessagePath string // default "/messages"
}

// NewSSEServer wraps a Server with HTTP handlers for the SSE transport.
func NewSSEServer(server *Server, opts SSEOptions) *SSEServer {
	ssePath := opts.SSEPath
	if ssePath == "" {
		ssePath = "/sse"
	}
	messagePath := opts.MessagePath
	if messagePath == "" {
		messagePath = "/messages"
	}
	return &SSEServer{
		server:      server,
		logger:      server.logger,
		ssePath:     ssePath,
		messagePath: messagePath,
	}
}

// ServeHTTP routes to the SSE stream or the message endpoint.
func (s *SSEServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Session-Id")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch r.URL.Path {
	case s.ssePath:
		s.handleSSE(w, r)
	case s.messagePath:
		s.handleMessage(w, r)
	default:
		http.NotFound(w, r)
	}
}

// ListenAndServe serves the SSE transport on the given address until the
// context is cancelled.
func (s *SSEServer) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	s.logger.Info("serving over SSE",
		zap.String("addr", addr),
		zap.String("sse_endpoint", s.ssePath),
		zap.String("message_endpoint", s.messagePath))

	select {
	case <-ctx.Done():
		_ = httpServer.Close()
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *SSEServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	session := newSSESession()
	s.sessions.Store(session.id, session)
	defer s.sessions.Delete(session.id)
	defer session.close()

	s.logger.Info("sse connection established",
		zap.String("session", session.id),
		zap.String("remote", r.RemoteAddr))

	// Tell the client where to POST its messages for this session.
	fmt.Fprintf(w, "event: endpoint\ndata: %s?sessionId=%s\n\n", s.messagePath, session.id)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case event := <-session.eventQueue:
			if _, err := fmt.Fprint(w, event); err != nil {
				s.logger.Warn("sse write failed, dropping session",
					zap.String("session", session.id), zap.Error(err))
				return
			}
			flusher.Flush()
		case <-session.done:
			return
		case <-ctx.Done():
			s.logger.Info("sse client disconnected", zap.String("session", session.id))
			return
		}
	}
}

func (s *SSEServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeRPCError(w, nil, protocol.ErrorCodeInvalidRequest, "method not allowed, use POST")
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = r.Header.Get("X-Session-Id")
	}
	if sessionID == "" {
		s.writeRPCError(w, nil, protocol.ErrorCodeInvalidParams, "missing sessionId")
		return
	}
	value, ok := s.sessions.Load(sessionID)
	if !ok {
		s.writeRPCError(w, nil, protocol.ErrorCodeInvalidParams,
			fmt.Sprintf("invalid or expired session ID: %s", sessionID))
		return
	}
	session := value.(*sseSession)

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeRPCError(w, nil, protocol.ErrorCodeParseError, fmt.Sprintf("parse error: %v", err))
		return
	}

	resp := s.server.HandleMessage(r.Context(), raw)
	if resp != nil {
		data, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("marshal response", zap.Error(err))
		} else if err := session.enqueue("message", string(data)); err != nil {
			s.logger.Warn("failed to queue response",
				zap.String("session", sessionID), zap.Error(err))
		}
	}

	// Responses travel over the SSE stream; the POST is just acknowledged.
	w.WriteHeader(http.StatusNoContent)
}

func (s *SSEServer) writeRPCError(w http.ResponseWriter, id interface{}, code protocol.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(protocol.NewErrorResponse(id, code, message, nil)); err != nil {
		s.logger.Error("write rpc error response", zap.Error(err))
	}
}
