package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// maxLineSize bounds a single newline-delimited JSON-RPC message (10 MB).
const maxLineSize = 10 * 1024 * 1024

// ServeStdio runs the server over newline-delimited JSON-RPC on the given
// reader/writer pair until EOF or context cancellation. Pass os.Stdin and
// os.Stdout for the standard pipe mode.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving over stdio", zap.String("server", s.name))

	var writeMu sync.Mutex
	write := func(v interface{}) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := out.Write(append(raw, '\n')); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		return nil
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		raw := make(json.RawMessage, len(line))
		copy(raw, line)

		resp := s.HandleMessage(ctx, raw)
		if resp == nil {
			continue
		}
		if err := write(resp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	s.logger.Info("stdin closed, stdio server exiting")
	return nil
}
