package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/quantbrew/algochat/internal/backoff"
	"github.com/quantbrew/algochat/internal/markdown"
	"github.com/quantbrew/algochat/internal/stream"
)

var chatRelayAddr string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant from the terminal",
	Long: `chat connects to a running relay over its websocket and streams
answers into the terminal. Type a message and press enter; /quit exits.`,
	RunE: func(*cobra.Command, []string) error {
		c := &chatClient{
			url:   fmt.Sprintf("ws://%s/ws/%s", chatRelayAddr, uuid.NewString()),
			rec:   stream.NewReconciler(nil),
			retry: backoff.NewExponential(time.Second, 30*time.Second, 5),
		}
		return c.run()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatRelayAddr, "relay", "localhost:8000", "relay host:port")
	rootCmd.AddCommand(chatCmd)
}

type chatClient struct {
	url   string
	rec   *stream.Reconciler
	retry backoff.Strategy

	// printed tracks how much of the open streamed message is already on
	// screen, so each fragment appends instead of reprinting.
	printed int
	pending string
}

func (c *chatClient) run() error {
	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	attempt := 0
	for {
		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			attempt++
			if attempt > c.retry.MaxAttempts() {
				return fmt.Errorf("relay unreachable after %d attempts: %w", c.retry.MaxAttempts(), err)
			}
			delay := c.retry.NextDelay(attempt)
			fmt.Fprintf(os.Stderr, "connection failed, retrying in %s (attempt %d/%d)\n",
				delay, attempt, c.retry.MaxAttempts())
			time.Sleep(delay)
			continue
		}
		attempt = 0

		done, err := c.session(conn, input)
		conn.Close()
		if done {
			return err
		}
		// Dropped mid-conversation: reconnect and retry the unsent message.
		fmt.Fprintln(os.Stderr, "connection lost, reconnecting...")
	}
}

// session runs one connection until the user quits (done=true) or the
// connection drops (done=false).
func (c *chatClient) session(conn *websocket.Conn, input <-chan string) (bool, error) {
	chunks := make(chan stream.Chunk)
	readErr := make(chan error, 1)
	go func() {
		for {
			var chunk stream.Chunk
			if err := conn.ReadJSON(&chunk); err != nil {
				readErr <- err
				return
			}
			chunks <- chunk
		}
	}()

	if c.pending != "" {
		if err := c.sendUser(conn, c.pending); err != nil {
			return false, nil
		}
	}

	for {
		select {
		case chunk := <-chunks:
			c.render(chunk)

		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return false, nil

		case line, ok := <-input:
			if !ok || strings.TrimSpace(line) == "/quit" {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				return true, nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			c.pending = text
			// New turn: a stale in-flight stream must never print again.
			c.rec.Reset()
			c.printed = 0
			if err := c.sendUser(conn, text); err != nil {
				return false, nil
			}
		}
	}
}

func (c *chatClient) sendUser(conn *websocket.Conn, text string) error {
	raw, _ := json.Marshal(map[string]string{"role": "user", "content": text})
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return err
	}
	return nil
}

func (c *chatClient) render(chunk stream.Chunk) {
	update := c.rec.Apply(chunk)
	switch update.Event {
	case stream.EventOpened:
		fmt.Print("\nassistant> " + update.Text)
		c.printed = len(update.Text)
	case stream.EventAppended:
		fmt.Print(update.Text[c.printed:])
		c.printed = len(update.Text)
	case stream.EventClosed:
		fmt.Println()
		c.printed = 0
		c.pending = ""
	case stream.EventMessage:
		fmt.Println("\nassistant> " + markdown.RepairTables(update.Text))
		c.pending = ""
	case stream.EventNotice:
		fmt.Fprintln(os.Stderr, "* "+update.Text)
	}
}
