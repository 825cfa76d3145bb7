package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"

	"github.com/apresai/polycast/internal/config"
	"github.com/apresai/polycast/internal/pipeline"
	"github.com/apresai/polycast/internal/progress"
	"github.com/apresai/polycast/internal/voice"
)

var (
	flagScript string
	flagNames  string
	flagVoices []string
	flagRunID  string
	flagJSON   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render a script into one MP3 per language",
	Long: `Render a dialogue script into audio for every language given with --voices.

Each --voices value is language=voice1,voice2,... with one voice per character,
in the order of --names. English is synthesized as written; other languages are
translated through Murf first.

Example:
  polycast generate --script episode.txt --names Alice,Bob \
    --voices english=en-US-natalie,en-US-ken \
    --voices french=fr-FR-justine,fr-FR-louis`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addRenderFlags(generateCmd)
	generateCmd.Flags().StringVarP(&flagScript, "script", "s", "", "Script file: JSON from 'polycast write' or plain 'Name: line' text")
	generateCmd.Flags().StringVarP(&flagNames, "names", "n", "", "Comma-separated character names (default: names stored in the script)")
	generateCmd.Flags().StringArrayVar(&flagVoices, "voices", nil, "Voices for one language as language=v1,v2,... (repeatable)")
	generateCmd.Flags().StringVar(&flagRunID, "run-id", "", "Identifier prefixed to every file of the run (default: new ULID)")
	generateCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the result as JSON")
	generateCmd.MarkFlagRequired("script")
	generateCmd.MarkFlagRequired("voices")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer startTracing(ctx, cfg, logger)()

	s, err := loadScriptFile(flagScript, flagNames)
	if err != nil {
		return err
	}
	voices, err := voice.ParseVoiceSpecs(flagVoices)
	if err != nil {
		return err
	}
	if err := checkTranslation(cfg, s.Names, voices); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkFFmpeg(cfg.FFmpegPath); err != nil {
		return err
	}

	p, closeTTS, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTTS()

	req := pipeline.Request{
		Script: s.Content,
		Names:  s.Names,
		Voices: voices,
		RunID:  flagRunID,
	}
	if !flagVerbose && !flagJSON {
		r := progress.NewBarRenderer(os.Stdout)
		defer r.Finish()
		req.OnProgress = r.Handle
	}

	res, runErr := p.Run(ctx, req)
	if res == nil {
		return runErr
	}
	if flagJSON {
		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), res)
	}
	if runErr != nil {
		return runErr
	}
	if len(res.Languages) == 0 {
		return errors.New("no language completed")
	}
	return nil
}

// checkTranslation reports missing Murf credentials up front when a
// playable non-default language is requested, whichever TTS provider is
// selected. Languages left without voices are never translated.
func checkTranslation(cfg config.Config, names []string, voices map[string][]string) error {
	assignments, err := voice.Resolve(names, voices)
	if err != nil {
		return err
	}
	if cfg.CanTranslate() {
		return nil
	}
	for _, a := range assignments {
		if a.Language != voice.DefaultLanguage {
			return fmt.Errorf("%w: MURF_API_KEY is required to translate into %s", config.ErrMissingCredentials, a.Language)
		}
	}
	return nil
}

// buildPipeline loads AWS config only for the provider that needs it.
func buildPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pipeline.Pipeline, func() error, error) {
	var awsCfg *aws.Config
	if cfg.TTSProvider == "polly" {
		c, err := cfg.AWSConfig(ctx)
		if err != nil {
			return nil, nil, err
		}
		awsCfg = &c
	}
	return pipeline.FromConfig(ctx, cfg, awsCfg, nil, logger)
}

type jsonResult struct {
	*pipeline.Result
	Failed map[string]string `json:"failed,omitempty"`
}

func writeJSON(w io.Writer, res *pipeline.Result) error {
	out := jsonResult{Result: res}
	if len(res.Failed) > 0 {
		out.Failed = make(map[string]string, len(res.Failed))
		for lang, err := range res.Failed {
			out.Failed[lang] = err.Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "\nRun %s\n", res.RunID)
	for _, lang := range res.SortedLanguages() {
		lr := res.Languages[lang]
		fmt.Fprintf(w, "  %-10s %s", lang, lr.Path)
		if lr.Duration != "" {
			fmt.Fprintf(w, " (%s)", lr.Duration)
		}
		fmt.Fprintln(w)
		for _, d := range lr.Dropped {
			fmt.Fprintf(w, "    dropped line %d: %s\n", d.Order, d.Reason)
		}
	}

	failed := make([]string, 0, len(res.Failed))
	for lang := range res.Failed {
		failed = append(failed, lang)
	}
	sort.Strings(failed)
	if len(failed) > 0 {
		fmt.Fprintf(w, "\nFailed languages: %s\n", strings.Join(failed, ", "))
		for _, lang := range failed {
			fmt.Fprintf(w, "  %-10s %v\n", lang, res.Failed[lang])
		}
	}
}
