package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "test-enhancer",
		Short: "Test Enhancer - AI-assisted test improvement",
		Long: `Test Enhancer watches tracked repositories for source changes,
queues enhancement tasks, and drives each one through an AI pipeline
that proposes improved test files and opens a pull request.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
