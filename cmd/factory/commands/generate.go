package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/biodoia/contentfactory/internal/agents"
	"github.com/biodoia/contentfactory/internal/factory"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// Errori del comando generate
var (
	ErrEmptyTopic   = errors.New("topic must not be empty")
	ErrUnknownStage = errors.New("no such stage")
)

// GenerateCmd rappresenta il comando generate
var GenerateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Generate a content pack for a topic",
	Long: `Run the content pipeline on a topic and print the final content pack.

The researcher persona looks for viral hooks, then the writer persona turns
them into one section per selected platform. With --review an editor
persona polishes the result.`,
	Example: `  # Generate with the configured defaults
  factory generate "AI in Marketing"

  # Only a witty Twitter thread, reviewed by the editor
  factory generate "Go generics" --platform twitter --tone witty --review

  # Save the markdown document
  factory generate "Remote work" -o remote-work.md

  # Render the document in the terminal
  factory generate "Remote work" --render`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var (
	genPlatforms []string
	genTone      string
	genReview    bool
	genOutput    string
	genRender    bool
	genJSON      bool
	genStage     int
)

func init() {
	GenerateCmd.Flags().StringSliceVarP(&genPlatforms, "platform", "p", nil, "Platforms to write for (linkedin, twitter, blog)")
	GenerateCmd.Flags().StringVarP(&genTone, "tone", "t", "", "Tone of voice (professional, casual, witty, bold)")
	GenerateCmd.Flags().BoolVar(&genReview, "review", false, "Add an editor stage after the writer")
	GenerateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Write the markdown document to a file")
	GenerateCmd.Flags().BoolVar(&genRender, "render", false, "Render the markdown document in the terminal")
	GenerateCmd.Flags().BoolVar(&genJSON, "json", false, "Output the result as JSON")
	GenerateCmd.Flags().IntVar(&genStage, "stage", 0, "Print the output of a single stage (1-based) instead of the final text")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" {
		return ErrEmptyTopic
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// i flag sostituiscono la selezione della configurazione
	if len(genPlatforms) > 0 {
		cfg.Pipeline.Platforms = genPlatforms
	}
	if genTone != "" {
		cfg.Pipeline.Tone = genTone
	}
	if cmd.Flags().Changed("review") {
		cfg.Pipeline.Review = genReview
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := factory.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	status(mutedStyle, "…", "Generating content pack for %q", topic)

	if cfg.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.RequestTimeout)
		defer cancel()
	}

	out, err := svc.Generate(ctx, factory.Request{Topic: topic})
	if err != nil {
		var ee *agents.PipelineExecutionError
		if errors.As(err, &ee) {
			status(errorStyle, "✗", "Stage %d (%s) failed", ee.StageID, ee.StageName)
		}
		return err
	}

	reportStatus(out)

	switch {
	case genStage != 0:
		stage, ok := out.Result.Stage(genStage)
		if !ok {
			return fmt.Errorf("%w: %d (pipeline has %d stages)", ErrUnknownStage, genStage, len(out.Result.PerTaskOutputs))
		}
		fmt.Println(stage.Output)
		return nil
	case genJSON:
		return printJSON(out)
	case genOutput != "":
		if err := os.WriteFile(genOutput, []byte(out.Document()), 0o644); err != nil {
			return fmt.Errorf("failed to write document: %w", err)
		}
		status(successStyle, "✓", "Document written to %s", genOutput)
		return nil
	case genRender:
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}
		rendered, err := renderer.Render(out.Document())
		if err != nil {
			return fmt.Errorf("failed to render document: %w", err)
		}
		fmt.Print(rendered)
		return nil
	default:
		fmt.Print(out.Text)
		return nil
	}
}

func reportStatus(out *factory.Output) {
	for _, name := range out.Result.FallbacksUsed {
		if reason := out.FallbackReasons[name]; reason != "" {
			status(warnStyle, "!", "Capability %q unavailable (%s), personas used internal knowledge", name, reason)
			continue
		}
		status(warnStyle, "!", "Capability %q unavailable, personas used internal knowledge", name)
	}
	if out.PostProcessErr != nil {
		status(warnStyle, "!", "Post-processing failed (%v), showing unprocessed text", out.PostProcessErr)
	}
	status(successStyle, "✓", "Generated %d stages in %s %s",
		len(out.Result.PerTaskOutputs),
		out.Result.Duration.Round(time.Millisecond),
		mutedStyle.Render("run "+out.Result.RunID),
	)
}

func printJSON(out *factory.Output) error {
	payload := struct {
		*agents.PipelineResult
		Text             string            `json:"text"`
		FallbackReasons  map[string]string `json:"fallback_reasons,omitempty"`
		PostProcessError string            `json:"post_process_error,omitempty"`
	}{PipelineResult: out.Result, Text: out.Text, FallbackReasons: out.FallbackReasons}
	if out.PostProcessErr != nil {
		payload.PostProcessError = out.PostProcessErr.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
