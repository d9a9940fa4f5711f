package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbrew/algochat/internal/agent"
	"github.com/quantbrew/algochat/internal/protocol"
	"github.com/quantbrew/algochat/internal/stream"
)

type fakeGateway struct {
	pingErr error
	calls   []string
}

func (f *fakeGateway) ListTools(context.Context) ([]protocol.Tool, error) {
	return []protocol.Tool{{Name: "get_funds", InputSchema: protocol.ToolInputSchema{Type: "object"}}}, nil
}

func (f *fakeGateway) CallTool(_ context.Context, name string, _ map[string]interface{}) (*protocol.CallToolResult, error) {
	f.calls = append(f.calls, name)
	return &protocol.CallToolResult{Content: []protocol.Content{
		protocol.TextContent(`{"status":"success","data":{"availablecash":"808.18"}}`),
	}}, nil
}

func (f *fakeGateway) Ping(context.Context) error { return f.pingErr }
func (f *fakeGateway) Close() error               { return nil }

type fakeDialer struct {
	conn    *fakeGateway
	dialErr error
}

func (f *fakeDialer) Dial(context.Context) (GatewayConn, error) {
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return f.conn, nil
}

type fakeStream struct {
	responses []openai.ChatCompletionStreamResponse
	pos       int
}

func (f *fakeStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if f.pos >= len(f.responses) {
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	r := f.responses[f.pos]
	f.pos++
	return r, nil
}

func (f *fakeStream) Close() error { return nil }

type fakeLLM struct {
	scripts [][]openai.ChatCompletionStreamResponse
}

func (f *fakeLLM) CreateChatCompletionStream(context.Context, openai.ChatCompletionRequest) (agent.ChatStream, error) {
	if len(f.scripts) == 0 {
		return nil, errors.New("provider unavailable")
	}
	script := f.scripts[0]
	f.scripts = f.scripts[1:]
	return &fakeStream{responses: script}, nil
}

func contentDelta(content string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{Content: content}},
		},
	}
}

func newRelay(llm agent.ChatStreamer, dialer GatewayDialer) *Server {
	return New("http://localhost:8001", "gpt-4o", llm, dialer, nil)
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(newRelay(&fakeLLM{}, &fakeDialer{conn: &fakeGateway{}}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusConnected(t *testing.T) {
	ts := httptest.NewServer(newRelay(&fakeLLM{}, &fakeDialer{conn: &fakeGateway{}}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "connected", body["status"])
	assert.Equal(t, "http://localhost:8001", body["mcp_server"])
}

func TestStatusDisconnectedWhenDialFails(t *testing.T) {
	dialer := &fakeDialer{dialErr: errors.New("connection refused")}
	ts := httptest.NewServer(newRelay(&fakeLLM{}, dialer).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "disconnected", body["status"])
	assert.Contains(t, body["message"], "connection refused")
}

func TestStatusErrorWhenPingFails(t *testing.T) {
	dialer := &fakeDialer{conn: &fakeGateway{pingErr: errors.New("timeout")}}
	ts := httptest.NewServer(newRelay(&fakeLLM{}, dialer).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
}

func TestIndexServesChatPage(t *testing.T) {
	ts := httptest.NewServer(newRelay(&fakeLLM{}, &fakeDialer{conn: &fakeGateway{}}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "OpenAlgo Trading Assistant")
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/test-client"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readChunk(t *testing.T, conn *websocket.Conn) stream.Chunk {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var chunk stream.Chunk
	require.NoError(t, conn.ReadJSON(&chunk))
	return chunk
}

func TestWebsocketTurnStreamsFragmentsAndTerminator(t *testing.T) {
	llm := &fakeLLM{scripts: [][]openai.ChatCompletionStreamResponse{
		{contentDelta("Your available "), contentDelta("margin is ₹50,000.")},
	}}
	ts := httptest.NewServer(newRelay(llm, &fakeDialer{conn: &fakeGateway{}}).Handler())
	defer ts.Close()

	conn := dialWS(t, ts)

	welcome := readChunk(t, conn)
	assert.Equal(t, "assistant", welcome.Role)
	assert.Contains(t, welcome.Content, "Welcome to OpenAlgo Trading Assistant")
	assert.False(t, welcome.Partial)

	require.NoError(t, conn.WriteJSON(map[string]string{"role": "user", "content": "Show my available funds"}))

	processing := readChunk(t, conn)
	assert.Equal(t, "system", processing.Role)
	assert.Equal(t, stream.ProcessingNotice, processing.Content)

	first := readChunk(t, conn)
	assert.Equal(t, "assistant", first.Role)
	assert.True(t, first.Partial)
	assert.Equal(t, "Your available ", first.Content)

	second := readChunk(t, conn)
	assert.True(t, second.Partial)
	assert.Equal(t, "margin is ₹50,000.", second.Content)

	terminator := readChunk(t, conn)
	assert.Equal(t, "assistant", terminator.Role)
	assert.False(t, terminator.Partial)
	assert.Empty(t, terminator.Content)
}

func TestWebsocketTurnFailureSendsSystemNotice(t *testing.T) {
	llm := &fakeLLM{} // no scripts: every model request fails
	ts := httptest.NewServer(newRelay(llm, &fakeDialer{conn: &fakeGateway{}}).Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readChunk(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(map[string]string{"role": "user", "content": "hello"}))

	processing := readChunk(t, conn)
	assert.Equal(t, "system", processing.Role)

	failure := readChunk(t, conn)
	assert.Equal(t, "system", failure.Role)
	assert.Contains(t, failure.Content, "Error:")
}

func TestWebsocketIgnoresEmptyMessages(t *testing.T) {
	llm := &fakeLLM{scripts: [][]openai.ChatCompletionStreamResponse{
		{contentDelta("answered")},
	}}
	ts := httptest.NewServer(newRelay(llm, &fakeDialer{conn: &fakeGateway{}}).Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readChunk(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(map[string]string{"role": "user", "content": "   "}))
	require.NoError(t, conn.WriteJSON(map[string]string{"role": "user", "content": "real question"}))

	processing := readChunk(t, conn)
	assert.Equal(t, stream.ProcessingNotice, processing.Content)
}

func TestWebsocketInvalidJSONGetsFormatError(t *testing.T) {
	ts := httptest.NewServer(newRelay(&fakeLLM{}, &fakeDialer{conn: &fakeGateway{}}).Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readChunk(t, conn) // welcome

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	chunk := readChunk(t, conn)
	assert.Equal(t, "system", chunk.Role)
	assert.Equal(t, "Error: Invalid message format.", chunk.Content)
}

func TestWebsocketGatewayFailureReported(t *testing.T) {
	dialer := &fakeDialer{dialErr: errors.New("gateway down")}
	ts := httptest.NewServer(newRelay(&fakeLLM{}, dialer).Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	readChunk(t, conn) // welcome

	chunk := readChunk(t, conn)
	assert.Equal(t, "system", chunk.Role)
	assert.Contains(t, chunk.Content, "tool gateway")
}
