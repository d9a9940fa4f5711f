package mcpclient

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/backoff"
)

// sseTransport is the client side of the hybrid SSE transport: a long-lived
// GET stream carries server-to-client messages, POSTs carry the rest.
type sseTransport struct {
	baseURL    string
	ssePath    string
	httpClient *http.Client
	logger     *zap.Logger
	retry      backoff.Strategy

	mu         sync.Mutex
	messageURL string
	body       io.ReadCloser
	closed     bool

	cancel context.CancelFunc
}

// SSEOptions configure the SSE transport.
type SSEOptions struct {
	// SSEPath is the event stream path (default "/sse").
	SSEPath string
	// HTTPClient overrides the default client used for POSTs.
	HTTPClient *http.Client
	// Retry governs connect attempts (default: 1s base, 30s cap, 5 attempts).
	Retry  backoff.Strategy
	Logger *zap.Logger
}

// NewSSE creates a client connected to a gateway at baseURL, e.g.
// "http://localhost:8001".
func NewSSE(name, baseURL string, opts SSEOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ssePath := opts.SSEPath
	if ssePath == "" {
		ssePath = "/sse"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	retry := opts.Retry
	if retry == nil {
		retry = backoff.NewExponential(time.Second, 30*time.Second, 5)
	}
	t := &sseTransport{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		ssePath:    ssePath,
		httpClient: httpClient,
		logger:     logger,
		retry:      retry,
	}
	return New(name, t, WithLogger(logger))
}

// Start connects the GET stream, retrying per the backoff strategy, and
// returns once the server has announced the session's message endpoint.
func (t *sseTransport) Start(ctx context.Context, onMessage func([]byte)) error {
	var lastErr error
	attempts := t.retry.MaxAttempts()
	for attempt := 1; attempts == 0 || attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := t.retry.NextDelay(attempt - 1)
			t.logger.Info("retrying SSE connect",
				zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := t.connect(ctx, onMessage); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("sse connect failed after %d attempts: %w", attempts, lastErr)
}

func (t *sseTransport) connect(ctx context.Context, onMessage func([]byte)) error {
	streamCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.baseURL+t.ssePath, nil)
	if err != nil {
		cancel()
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream client must not time out the long-lived GET.
	streamClient := &http.Client{Transport: t.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("open event stream: unexpected status %s", resp.Status)
	}

	t.mu.Lock()
	t.body = resp.Body
	t.cancel = cancel
	t.mu.Unlock()

	endpointCh := make(chan string, 1)
	go t.readLoop(resp.Body, endpointCh, onMessage)

	select {
	case endpoint := <-endpointCh:
		messageURL, err := t.resolveEndpoint(endpoint)
		if err != nil {
			t.Close()
			return err
		}
		t.mu.Lock()
		t.messageURL = messageURL
		t.mu.Unlock()
		t.logger.Debug("received message endpoint", zap.String("url", messageURL))
		return nil
	case <-time.After(10 * time.Second):
		t.Close()
		return fmt.Errorf("timeout waiting for endpoint event")
	case <-ctx.Done():
		t.Close()
		return ctx.Err()
	}
}

// resolveEndpoint turns the advertised message endpoint (usually a relative
// path with a sessionId query) into an absolute URL.
func (t *sseTransport) resolveEndpoint(endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint, nil
	}
	base, err := url.Parse(t.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	rel, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	return base.ResolveReference(rel).String(), nil
}

// readLoop parses the SSE wire format: "event:"/"data:" lines terminated by
// a blank line form one event.
func (t *sseTransport) readLoop(body io.ReadCloser, endpointCh chan<- string, onMessage func([]byte)) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	var eventName, data string
	flush := func() {
		if data == "" {
			eventName = ""
			return
		}
		switch eventName {
		case "endpoint":
			select {
			case endpointCh <- data:
			default:
			}
		case "message", "":
			onMessage([]byte(data))
		default:
			t.logger.Debug("ignoring SSE event", zap.String("event", eventName))
		}
		eventName, data = "", ""
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		switch {
		case len(bytes.TrimSpace(line)) == 0:
			flush()
		case bytes.HasPrefix(line, []byte("event:")):
			eventName = strings.TrimSpace(string(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			if data != "" {
				data += "\n"
			}
			data += strings.TrimSpace(string(line[len("data:"):]))
		case bytes.HasPrefix(line, []byte(":")):
			// comment/keepalive
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if !closed {
			t.logger.Warn("event stream closed", zap.Error(err))
		}
	}
}

// Send POSTs one message to the session's message endpoint.
func (t *sseTransport) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	messageURL := t.messageURL
	t.mu.Unlock()
	if messageURL == "" {
		return fmt.Errorf("transport not started")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messageURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("post message: status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// Close shuts down the event stream.
func (t *sseTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.cancel != nil {
		t.cancel()
	}
	if t.body != nil {
		_ = t.body.Close()
	}
	return nil
}
