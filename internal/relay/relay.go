// Package relay bridges browser sessions to the LLM and the tool gateway.
// Each websocket connection gets its own gateway client and conversation;
// sessions share nothing but the stateless gateway behind them.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/agent"
	"github.com/quantbrew/algochat/internal/stream"
	"github.com/quantbrew/algochat/internal/web"
)

// GatewayConn is one live connection to the tool gateway.
type GatewayConn interface {
	agent.ToolClient
	Ping(ctx context.Context) error
	Close() error
}

// GatewayDialer opens gateway connections. Each browser session dials its
// own so a gateway hiccup never couples sessions.
type GatewayDialer interface {
	Dial(ctx context.Context) (GatewayConn, error)
}

// Server is the assistant relay HTTP surface: the chat websocket, a status
// probe, a health check and the embedded browser UI.
type Server struct {
	gatewayURL string
	model      string
	llm        agent.ChatStreamer
	dialer     GatewayDialer
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// New creates a relay server.
func New(gatewayURL, model string, llm agent.ChatStreamer, dialer GatewayDialer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		gatewayURL: gatewayURL,
		model:      model,
		llm:        llm,
		dialer:     dialer,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the relay's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{clientID}", s.handleWebsocket)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
	mux.HandleFunc("GET /{$}", s.handleIndex)
	return mux
}

// ListenAndServe serves the relay until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("relay listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(web.Index())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus probes the gateway with a short-lived connection so the
// browser can show connectivity before the user commits to a message.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":     "disconnected",
			"mcp_server": s.gatewayURL,
			"message":    err.Error(),
		})
		return
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":     "error",
			"mcp_server": s.gatewayURL,
			"message":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "connected",
		"mcp_server": s.gatewayURL,
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientID")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.String("client", clientID), zap.Error(err))
		return
	}

	sess := newSession(clientID, conn, s.logger.With(zap.String("client", clientID)))
	defer sess.close()

	go sess.writeLoop()
	sess.send(stream.Chunk{Role: "assistant", Content: agent.Welcome})

	gw, err := s.dialer.Dial(r.Context())
	if err != nil {
		sess.logger.Error("gateway connection failed", zap.Error(err))
		sess.send(stream.Chunk{Role: "system", Content: fmt.Sprintf("Error: could not reach tool gateway: %v", err)})
		return
	}
	defer gw.Close()

	ag, err := agent.New(r.Context(), s.llm, gw, s.model, agent.WithLogger(sess.logger))
	if err != nil {
		sess.logger.Error("agent initialization failed", zap.Error(err))
		sess.send(stream.Chunk{Role: "system", Content: fmt.Sprintf("Error: %v", err)})
		return
	}

	sess.run(r.Context(), ag)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
