package mcpclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// stdioTransport runs the gateway as a child process and exchanges
// newline-delimited JSON-RPC over its stdin/stdout.
type stdioTransport struct {
	command string
	args    []string
	env     []string
	logger  *zap.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

// StdioOptions configure the stdio transport.
type StdioOptions struct {
	// Env is appended to the child's inherited environment.
	Env    []string
	Logger *zap.Logger
}

// NewStdio creates a client that spawns command and talks to it over pipes.
func NewStdio(name, command string, args []string, opts StdioOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &stdioTransport{
		command: command,
		args:    args,
		env:     opts.Env,
		logger:  logger,
	}
	return New(name, t, WithLogger(logger))
}

func (t *stdioTransport) Start(ctx context.Context, onMessage func([]byte)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd != nil {
		return fmt.Errorf("transport already started")
	}

	cmd := exec.Command(t.command, t.args...)
	if len(t.env) > 0 {
		cmd.Env = append(cmd.Environ(), t.env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", t.command, err)
	}
	t.cmd = cmd
	t.stdin = stdin
	t.logger.Info("gateway process started",
		zap.String("command", t.command), zap.Int("pid", cmd.Process.Pid))

	go t.readLoop(stdout, onMessage)
	go t.logStderr(stderr)
	return nil
}

func (t *stdioTransport) readLoop(stdout io.Reader, onMessage func([]byte)) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg := make([]byte, len(line))
		copy(msg, line)
		onMessage(msg)
	}
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if !closed {
		t.logger.Warn("gateway process stdout closed")
	}
}

func (t *stdioTransport) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		t.logger.Debug("gateway stderr", zap.String("line", scanner.Text()))
	}
}

func (t *stdioTransport) Send(_ context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stdin == nil {
		return fmt.Errorf("transport not started")
	}
	if t.closed {
		return fmt.Errorf("transport closed")
	}
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write to gateway: %w", err)
	}
	return nil
}

func (t *stdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.stdin != nil {
		_ = t.stdin.Close()
	}
	if t.cmd != nil && t.cmd.Process != nil {
		if err := t.cmd.Process.Kill(); err != nil {
			t.logger.Debug("kill gateway process", zap.Error(err))
		}
		_ = t.cmd.Wait()
	}
	return nil
}
