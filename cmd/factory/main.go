package main

import (
	"fmt"
	"os"

	"github.com/biodoia/contentfactory/cmd/factory/commands"
	"github.com/biodoia/contentfactory/internal/server"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	server.Version = version

	rootCmd := &cobra.Command{
		Use:   "factory",
		Short: "Content Factory - multi-stage persona content pipeline",
		Long: `Content Factory - research, write and polish content with LLM personas

Each topic flows through a fixed sequence of stages. Every stage is handled
by a persona backed by a language model and optional capabilities such as
web search, and sees the outputs of all the stages before it.

Features:
  • LinkedIn, Twitter and Blog deliverables in a single content pack
  • OpenAI-compatible (Groq) and Gemini model backends
  • Graceful fallback when a capability is unavailable
  • HTTP API with Prometheus metrics`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging (debug level)")
	rootCmd.PersistentFlags().Bool("dev", false, "Enable development mode (pretty console logging)")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.PersonasCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Content Factory version %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
