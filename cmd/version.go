package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the algochat version",
	Run: func(*cobra.Command, []string) {
		fmt.Println("algochat " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
