package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/agent"
	"github.com/quantbrew/algochat/internal/config"
	"github.com/quantbrew/algochat/internal/relay"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant relay and browser UI",
	Long: `serve runs the assistant relay: it connects browser sessions to the
configured LLM provider, executes requested tool calls against the gateway
and streams answers back over a websocket.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if servePort != 0 {
			setenvDefault("APP_PORT", fmt.Sprintf("%d", servePort))
		}

		cfg, err := config.LoadRelay()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Debug)
		defer logger.Sync()

		logger.Info("starting assistant relay",
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model()),
			zap.String("gateway", cfg.MCPURL()))

		llm := agent.NewLLMClient(cfg.Provider, cfg.ProviderKey())
		dialer := relay.SSEDialer{BaseURL: cfg.MCPURL(), Logger: logger}
		srv := relay.New(cfg.MCPURL(), cfg.Model(), llm, dialer, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default 8000)")
	rootCmd.AddCommand(serveCmd)
}
