package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantbrew/algochat/internal/mcpclient"
)

var (
	toolsGatewayURL string
	toolsStdio      bool
	toolsArgsJSON   string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and invoke gateway tools directly",
	Long: `tools talks to the gateway without an LLM in between, for debugging.

By default it connects to a running gateway over its event stream. With
--stdio it spawns "algochat gateway --mode stdio" as a child process and
talks over pipes instead.`,
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the gateway's tool catalogue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, cleanup, err := dialGateway(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		tools, err := client.ListTools(cmd.Context())
		if err != nil {
			return err
		}
		for _, tool := range tools {
			fmt.Printf("%-24s %s\n", tool.Name, tool.Description)
		}
		return nil
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <name>",
	Short: "Invoke one tool with JSON arguments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var toolArgs map[string]interface{}
		if toolsArgsJSON != "" {
			if err := json.Unmarshal([]byte(toolsArgsJSON), &toolArgs); err != nil {
				return fmt.Errorf("parse --args: %w", err)
			}
		}

		client, cleanup, err := dialGateway(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := client.CallTool(cmd.Context(), args[0], toolArgs)
		if err != nil {
			return err
		}
		if result.IsError {
			fmt.Fprintln(os.Stderr, "tool error:")
		}
		fmt.Println(result.Text())
		return nil
	},
}

func dialGateway(ctx context.Context) (*mcpclient.Client, func(), error) {
	logger := newLogger(false)

	var client *mcpclient.Client
	if toolsStdio {
		self, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("locate executable: %w", err)
		}
		client = mcpclient.NewStdio("algochat-tools", self,
			[]string{"gateway", "--mode", "stdio"},
			mcpclient.StdioOptions{Logger: logger})
	} else {
		client = mcpclient.NewSSE("algochat-tools", toolsGatewayURL,
			mcpclient.SSEOptions{Logger: logger})
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
		logger.Sync()
	}
	return client, cleanup, nil
}

func init() {
	toolsCmd.PersistentFlags().StringVar(&toolsGatewayURL, "gateway", "http://localhost:8001", "gateway base URL")
	toolsCmd.PersistentFlags().BoolVar(&toolsStdio, "stdio", false, "spawn the gateway as a child over stdio")
	toolsCallCmd.Flags().StringVar(&toolsArgsJSON, "args", "", "tool arguments as a JSON object")
	toolsCmd.AddCommand(toolsListCmd, toolsCallCmd)
	rootCmd.AddCommand(toolsCmd)
}
