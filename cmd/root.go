// Package cmd wires the algochat subcommands: the tool gateway, the
// assistant relay and a terminal chat client.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantbrew/algochat/internal/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "algochat",
	Short: "OpenAlgo trading assistant: tool gateway, LLM relay and chat client",
	Long: `algochat connects LLMs to the OpenAlgo trading platform.

The gateway exposes trading operations as callable tools, the relay runs
LLM conversations against those tools and streams answers to the browser,
and chat is a terminal client for the relay.`,
	PersistentPreRun: func(*cobra.Command, []string) {
		config.LoadDotenv()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger builds the process logger. Logs go to stderr so the gateway's
// stdio transport keeps stdout clean for protocol traffic.
func newLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug || verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// setenvDefault seeds an environment variable from a flag value so the
// environment still wins, matching the precedence of the config contract.
func setenvDefault(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}
