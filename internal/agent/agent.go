// Package agent runs conversation turns against a hosted LLM, executing the
// tool calls the model requests through the tool gateway and streaming the
// textual answer fragment by fragment.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/protocol"
)

// toolCallLimit caps tool invocations per turn so a confused model cannot
// loop forever against the gateway.
const toolCallLimit = 10

// historyWindow is how many past exchanges are replayed to the model.
const historyWindow = 10

// ToolClient is the slice of the gateway client the agent needs.
type ToolClient interface {
	ListTools(ctx context.Context) ([]protocol.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*protocol.CallToolResult, error)
}

// ChatStream yields the deltas of one streamed model response.
type ChatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// ChatStreamer is the slice of the LLM client the agent needs. The real
// implementation wraps *openai.Client; tests substitute a scripted one.
type ChatStreamer interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error)
}

type openaiStreamer struct {
	client *openai.Client
}

func (s openaiStreamer) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Agent holds one session's conversation with the model. Not safe for
// concurrent use; each session runs its turns sequentially.
type Agent struct {
	llm    ChatStreamer
	tools  ToolClient
	model  string
	logger *zap.Logger

	defs    []openai.Tool
	history []openai.ChatCompletionMessage
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the agent logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an agent speaking the given model. The gateway's tool
// catalogue is fetched once here and attached to every model request.
func New(ctx context.Context, llm ChatStreamer, tools ToolClient, model string, opts ...Option) (*Agent, error) {
	a := &Agent{
		llm:    llm,
		tools:  tools,
		model:  model,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	catalogue, err := tools.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	a.defs = make([]openai.Tool, 0, len(catalogue))
	for _, t := range catalogue {
		a.defs = append(a.defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	a.logger.Info("agent initialized", zap.String("model", model), zap.Int("tools", len(a.defs)))
	return a, nil
}

// Run executes one conversation turn: the user message goes to the model,
// any requested tool calls are executed one at a time in emission order, and
// the final textual answer is streamed through onFragment. The complete
// answer is returned and recorded in the history.
func (a *Agent) Run(ctx context.Context, userMessage string, onFragment func(string)) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(a.history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: Instructions(),
	})
	messages = append(messages, a.history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	var full string
	callsUsed := 0
	for {
		text, toolCalls, err := a.streamOnce(ctx, messages, onFragment)
		if err != nil {
			return "", err
		}
		full += text

		if len(toolCalls) == 0 {
			break
		}
		if callsUsed+len(toolCalls) > toolCallLimit {
			return "", fmt.Errorf("tool call limit of %d exceeded", toolCallLimit)
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   text,
			ToolCalls: toolCalls,
		})
		for _, call := range toolCalls {
			result, err := a.execute(ctx, call)
			if err != nil {
				return "", err
			}
			callsUsed++
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	a.remember(userMessage, full)
	return full, nil
}

// streamOnce runs a single model request, forwarding content deltas to
// onFragment and accumulating tool-call deltas into whole calls.
func (a *Agent) streamOnce(ctx context.Context, messages []openai.ChatCompletionMessage, onFragment func(string)) (string, []openai.ToolCall, error) {
	stream, err := a.llm.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
		Tools:    a.defs,
	})
	if err != nil {
		return "", nil, fmt.Errorf("model request: %w", err)
	}
	defer stream.Close()

	var text string
	pending := map[int]*openai.ToolCall{}
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("model stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			text += delta.Content
			if onFragment != nil {
				onFragment(delta.Content)
			}
		}
		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := pending[idx]
			if !ok {
				acc = &openai.ToolCall{Type: openai.ToolTypeFunction}
				pending[idx] = acc
			}
			if tc.ID != "" {
				acc.ID = tc.ID
			}
			if tc.Function.Name != "" {
				acc.Function.Name = tc.Function.Name
			}
			acc.Function.Arguments += tc.Function.Arguments
		}
	}

	// Calls execute in the order the model emitted them.
	indices := make([]int, 0, len(pending))
	for idx := range pending {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	calls := make([]openai.ToolCall, 0, len(pending))
	for _, idx := range indices {
		calls = append(calls, *pending[idx])
	}
	return text, calls, nil
}

// execute runs one tool call against the gateway. Tool-level failures come
// back as ordinary results so the model can explain them; only transport
// faults abort the turn.
func (a *Agent) execute(ctx context.Context, call openai.ToolCall) (string, error) {
	var args map[string]interface{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return "", fmt.Errorf("tool %s: malformed arguments: %w", call.Function.Name, err)
		}
	}
	a.logger.Info("executing tool call", zap.String("tool", call.Function.Name))
	result, err := a.tools.CallTool(ctx, call.Function.Name, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", call.Function.Name, err)
	}
	if result.IsError {
		a.logger.Warn("tool returned error result", zap.String("tool", call.Function.Name))
	}
	return result.Text(), nil
}

// remember appends the finished exchange and trims the replayed window.
func (a *Agent) remember(userMessage, answer string) {
	a.history = append(a.history,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userMessage},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: answer},
	)
	if max := historyWindow * 2; len(a.history) > max {
		a.history = a.history[len(a.history)-max:]
	}
}

// NewLLMClient builds the provider client. Provider "groq" talks to Groq's
// OpenAI-compatible endpoint; anything else defaults to OpenAI.
func NewLLMClient(provider, apiKey string) ChatStreamer {
	cfg := openai.DefaultConfig(apiKey)
	if provider == "groq" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	return openaiStreamer{client: openai.NewClientWithConfig(cfg)}
}
