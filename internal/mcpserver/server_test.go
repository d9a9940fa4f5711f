package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbrew/algochat/internal/protocol"
)

type echoArgs struct {
	Text   string `json:"text" description:"Text to echo"`
	Repeat *int   `json:"repeat" description:"Repeat count"`
}

func newEchoServer() *Server {
	s := NewServer("test-server", WithInstructions("test instructions"))
	RegisterTool(s, "echo", "Echo the input text.",
		func(_ context.Context, args echoArgs) (string, error) {
			n := 1
			if args.Repeat != nil {
				n = *args.Repeat
			}
			out := ""
			for i := 0; i < n; i++ {
				out += args.Text
			}
			return out, nil
		})
	RegisterTool(s, "fail", "Always fails.",
		func(context.Context, echoArgs) (string, error) {
			return "", &ToolError{Kind: "rejected", Message: "no funds"}
		})
	RegisterTool(s, "boom", "Fails with a plain error.",
		func(context.Context, echoArgs) (string, error) {
			return "", errors.New("unexpected")
		})
	return s
}

func call(t *testing.T, s *Server, raw string) *protocol.JSONRPCResponse {
	t.Helper()
	return s.HandleMessage(context.Background(), json.RawMessage(raw))
}

func TestInitialize(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0.1"}}}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, resp.UnmarshalResult(&result))
	assert.Equal(t, protocol.Version, result.ProtocolVersion)
	assert.Equal(t, "test-server", result.ServerInfo.Name)
	assert.Equal(t, "test instructions", result.Instructions)
	assert.NotNil(t, result.Capabilities.Tools)
}

func TestInitializedNotificationHasNoResponse(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Nil(t, resp)
}

func TestListToolsSortedWithSchemas(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result protocol.ListToolsResult
	require.NoError(t, resp.UnmarshalResult(&result))
	require.Len(t, result.Tools, 3)
	assert.Equal(t, "boom", result.Tools[0].Name)
	assert.Equal(t, "echo", result.Tools[1].Name)
	assert.Equal(t, "fail", result.Tools[2].Name)

	echo := result.Tools[1]
	assert.Equal(t, "object", echo.InputSchema.Type)
	assert.Equal(t, []string{"text"}, echo.InputSchema.Required)
	assert.Equal(t, "string", echo.InputSchema.Properties["text"].Type)
	assert.Equal(t, "integer", echo.InputSchema.Properties["repeat"].Type)
}

func TestCallTool(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi","repeat":2}}}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result protocol.CallToolResult
	require.NoError(t, resp.UnmarshalResult(&result))
	assert.False(t, result.IsError)
	assert.Equal(t, "hihi", result.Text())
}

func TestCallToolWeaklyTypedArguments(t *testing.T) {
	s := newEchoServer()

	// Models sometimes send numbers as strings.
	resp := call(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo","arguments":{"text":"x","repeat":"3"}}}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result protocol.CallToolResult
	require.NoError(t, resp.UnmarshalResult(&result))
	assert.Equal(t, "xxx", result.Text())
}

func TestToolErrorBecomesStructuredResult(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"fail","arguments":{"text":"x"}}}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error, "tool failures are results, not transport faults")

	var result protocol.CallToolResult
	require.NoError(t, resp.UnmarshalResult(&result))
	assert.True(t, result.IsError)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(result.Text()), &payload))
	assert.Equal(t, "rejected", payload["error"])
	assert.Equal(t, "no funds", payload["message"])
}

func TestPlainErrorGetsInternalKind(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"boom","arguments":{"text":"x"}}}`)
	require.NotNil(t, resp)

	var result protocol.CallToolResult
	require.NoError(t, resp.UnmarshalResult(&result))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text(), `"error":"internal"`)
}

func TestUnknownToolIsInvalidParams(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrorCodeInvalidParams, resp.Error.Code)
}

func TestUnknownMethodIsMethodNotFound(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","id":8,"method":"resources/list"}`)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrorCodeMethodNotFound, resp.Error.Code)
}

func TestParseErrorResponse(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{not json`)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrorCodeParseError, resp.Error.Code)
}

func TestPing(t *testing.T) {
	s := newEchoServer()

	resp := call(t, s, `{"jsonrpc":"2.0","id":9,"method":"ping"}`)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error)
}
