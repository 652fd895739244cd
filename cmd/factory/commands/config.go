package commands

import (
	"fmt"
	"os"

	"github.com/biodoia/contentfactory/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd rappresenta il comando config
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage Content Factory configuration files.

This command allows you to view, validate, and generate configuration files.`,
	Example: `  # Show current configuration
  factory config show

  # Validate configuration file
  factory config validate -c config.yaml

  # Generate template configuration
  factory config generate -o config.yaml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the currently loaded configuration with all values. API keys are redacted.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate a configuration file for syntax and semantic errors.`,
	RunE:  runConfigValidate,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate template configuration",
	Long:  `Generate a template configuration file with all available options.`,
	Example: `  # Generate to stdout
  factory config generate

  # Generate production config
  factory config generate --env production -o prod.yaml`,
	RunE: runConfigGenerate,
}

var (
	configOutput string
	configEnv    string
)

func init() {
	configGenerateCmd.Flags().StringVarP(&configOutput, "output", "o", "", "Output file path (stdout if not specified)")
	configGenerateCmd.Flags().StringVar(&configEnv, "env", "development", "Environment (development, production)")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configGenerateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := yaml.Marshal(redact(cfg))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("# Current Configuration")
	fmt.Println("# =====================")
	fmt.Println()
	fmt.Print(string(data))

	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	label := configPath
	if label == "" {
		label = "(defaults)"
	}

	fmt.Printf("Validating configuration: %s\n\n", label)

	cfg, err := config.Load(configPath)
	if err != nil {
		status(errorStyle, "✗", "Failed to load configuration")
		return err
	}
	status(successStyle, "✓", "Configuration loaded successfully")

	if err := cfg.Validate(); err != nil {
		status(errorStyle, "✗", "Configuration validation failed")
		return err
	}
	status(successStyle, "✓", "Configuration is valid")

	fmt.Println()
	fmt.Println("Configuration summary:")
	fmt.Printf("  Server:     %s\n", cfg.Server.Addr())
	fmt.Printf("  Backend:    %s\n", cfg.Backends.Default)
	fmt.Printf("  API key:    %v\n", cfg.APIKey() != "")
	fmt.Printf("  Platforms:  %v\n", cfg.Pipeline.Platforms)
	fmt.Printf("  Search:     %v\n", cfg.Capabilities.Search.Enabled)
	fmt.Printf("  Grammar:    %v\n", cfg.Capabilities.Grammar.Enabled)
	fmt.Printf("  Redis:      %v\n", cfg.Redis.Enabled)
	fmt.Printf("  Prometheus: %v\n", cfg.Monitoring.Prometheus.Enabled)

	return nil
}

func runConfigGenerate(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(templateConfig(configEnv))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	output := `# Content Factory Configuration File
# ==================================
#
# API keys are read from GROQ_API_KEY and GEMINI_API_KEY; any other key
# can be overridden with FACTORY_<SECTION>_<KEY>.
#
# Environment: ` + configEnv + `

` + string(data)

	if configOutput != "" {
		if err := os.WriteFile(configOutput, []byte(output), 0o644); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		status(successStyle, "✓", "Configuration template generated: %s", configOutput)
		return nil
	}

	fmt.Print(output)
	return nil
}

// templateConfig parte dai default e applica le impostazioni d'ambiente
func templateConfig(env string) *config.Config {
	cfg := config.Default()

	if env == "production" {
		cfg.Redis.Enabled = true
		cfg.Monitoring.Logging.Level = "info"
		cfg.Monitoring.Logging.Format = "json"
		cfg.Server.AllowedOrigins = []string{"https://app.example.com"}
	} else {
		cfg.Monitoring.Logging.Level = "debug"
		cfg.Monitoring.Logging.Format = "console"
	}

	return cfg
}

// redact restituisce una copia della configurazione senza segreti
func redact(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Backends.OpenAI.APIKey != "" {
		c.Backends.OpenAI.APIKey = "********"
	}
	if c.Backends.Gemini.APIKey != "" {
		c.Backends.Gemini.APIKey = "********"
	}
	if c.Redis.Password != "" {
		c.Redis.Password = "********"
	}
	return &c
}
