package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/config"
	"github.com/quantbrew/algochat/internal/gateway"
	"github.com/quantbrew/algochat/internal/mcpserver"
	"github.com/quantbrew/algochat/internal/openalgo"
)

var (
	gatewayAPIKey string
	gatewayHost   string
	gatewayPort   int
	gatewayMode   string
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the trading tool gateway",
	Long: `gateway exposes OpenAlgo trading operations as callable tools.

Two transports are supported: "sse" serves an HTTP event stream for network
clients, "stdio" speaks newline-delimited JSON-RPC over stdin/stdout for a
parent process.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		setenvDefault("OPENALGO_API_KEY", gatewayAPIKey)
		setenvDefault("OPENALGO_API_HOST", gatewayHost)
		if gatewayPort != 0 {
			setenvDefault("SERVER_PORT", strconv.Itoa(gatewayPort))
		}
		setenvDefault("SERVER_MODE", gatewayMode)

		cfg, err := config.LoadGateway()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Debug)
		defer logger.Sync()

		logger.Info("starting tool gateway",
			zap.String("platform", cfg.APIHost),
			zap.String("mode", cfg.Mode))

		platform := openalgo.New(cfg.APIKey, cfg.APIHost, openalgo.WithLogger(logger))
		srv := mcpserver.NewServer("openalgo",
			mcpserver.WithLogger(logger),
			mcpserver.WithInstructions(gateway.Instructions))
		gateway.New(platform, logger).Register(srv)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch cfg.Mode {
		case config.ModeStdio:
			return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
		default:
			sse := mcpserver.NewSSEServer(srv, mcpserver.SSEOptions{})
			return sse.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Port))
		}
	},
}

func init() {
	gatewayCmd.Flags().StringVar(&gatewayAPIKey, "api-key", "", "OpenAlgo API key (env OPENALGO_API_KEY wins)")
	gatewayCmd.Flags().StringVar(&gatewayHost, "host", "", "OpenAlgo API host (default http://127.0.0.1:5000)")
	gatewayCmd.Flags().IntVar(&gatewayPort, "port", 0, "listen port for sse mode (default 8001)")
	gatewayCmd.Flags().StringVar(&gatewayMode, "mode", "", "transport mode: sse or stdio (default sse)")
	rootCmd.AddCommand(gatewayCmd)
}
