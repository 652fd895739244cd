// Package commands contiene i sottocomandi cobra della CLI factory
package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/biodoia/contentfactory/pkg/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Stili per le righe di stato su stderr
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF9F")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB000")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D6D")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A7A8C"))
)

// loadConfig carica e valida la configurazione indicata dal flag --config,
// poi configura il logger
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	dev, _ := cmd.Flags().GetBool("dev")
	setupLogger(cfg.Monitoring.Logging.Level, cfg.Monitoring.Logging.Format, verbose, dev)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setupLogger(level, format string, verbose, dev bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	// Pretty console output in development
	if dev || format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
		return
	}

	// JSON output for production
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func status(style lipgloss.Style, symbol, format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, style.Render(symbol)+" "+fmt.Sprintf(format, args...))
}
