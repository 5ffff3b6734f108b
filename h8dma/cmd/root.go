// Package cmd provides the command-line interface of h8dma.
package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "h8dma",
	Short: "h8dma runs scenarios against a model of the H8 DMA controller.",
	Long: `h8dma runs scenarios against a model of the H8 DMA controller. ` +
		`Scenarios are YAML files of register writes, request events, and ` +
		`bus steps. Defaults can be set in a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return loadEnv()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Registered exit handlers, such as recorder flushes, run
// before the process exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Print(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
