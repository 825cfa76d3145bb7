package cli

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/spf13/cobra"

	"github.com/apresai/polycast/internal/ingest"
	"github.com/apresai/polycast/internal/script"
)

// maxReferenceChars bounds how much source text goes into the prompt.
const maxReferenceChars = 40000

var (
	flagIdea   string
	flagTheme  string
	flagModel  string
	flagOutput string
	flagFrom   string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write a dialogue script from an idea or source material",
	RunE:  runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVar(&flagIdea, "idea", "", "What the episode is about")
	writeCmd.Flags().StringVar(&flagFrom, "from", "", "Source material: URL, PDF, or text file")
	writeCmd.Flags().StringVar(&flagTheme, "theme", "casual", "Show style: "+strings.Join(script.ThemeNames(), ", "))
	writeCmd.Flags().StringVarP(&flagNames, "names", "n", "", "Comma-separated character names (1-3)")
	writeCmd.Flags().StringVar(&flagModel, "model", "haiku", "Script model: haiku, sonnet, or nova-lite")
	writeCmd.Flags().StringVarP(&flagOutput, "output", "o", "script.json", "Where to save the script JSON")
	writeCmd.MarkFlagRequired("names")
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if _, ok := script.LookupTheme(flagTheme); !ok {
		return fmt.Errorf("unknown theme %q: choose one of %s", flagTheme, strings.Join(script.ThemeNames(), ", "))
	}

	if flagIdea == "" && flagFrom == "" {
		return fmt.Errorf("--idea or --from is required")
	}

	opts := script.GenerateOptions{
		Idea:  flagIdea,
		Theme: flagTheme,
		Names: splitList(flagNames),
	}
	if flagFrom != "" {
		doc, err := ingest.Load(cmd.Context(), flagFrom)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		logger.Info("Loaded source", "kind", doc.Kind, "origin", doc.Origin, "words", doc.Words)
		opts.Reference = doc.Excerpt(maxReferenceChars)
		if opts.Idea == "" {
			opts.Idea = doc.Title
		}
	}
	logger.Info("Writing script", "theme", flagTheme, "model", flagModel, "characters", len(opts.Names))

	var gen script.Generator
	if script.IsNovaModel(flagModel) {
		awsCfg, err := cfg.AWSConfig(cmd.Context())
		if err != nil {
			return err
		}
		gen = script.NewNovaGenerator(flagModel, bedrockruntime.NewFromConfig(awsCfg))
	} else {
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for Claude models")
		}
		gen = script.NewClaudeGenerator(flagModel, cfg.AnthropicAPIKey)
	}

	s, err := gen.Generate(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	if err := script.SaveScript(s, flagOutput); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Script saved: %s\n", flagOutput)
	if s.Title != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Title: %s\n", s.Title)
	}
	return nil
}
