package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/polycast/internal/config"
	"github.com/apresai/polycast/internal/observability"
	"github.com/apresai/polycast/internal/script"
	"github.com/apresai/polycast/internal/tts"
	"github.com/apresai/polycast/internal/voice"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "polycast",
	Short:         "Render dialogue scripts into multi-language podcast audio",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "polycast %s\n", Version)
	},
}

var listVoicesCmd = &cobra.Command{
	Use:   "list-voices [language]",
	Short: "List catalog voices, for one language or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runListVoices,
}

var listLanguagesCmd = &cobra.Command{
	Use:   "list-languages",
	Short: "List supported languages and their locales",
	RunE:  runListLanguages,
}

var (
	flagVerbose     bool
	flagTTS         string
	flagMurfAPIKey  string
	flagOutputDir   string
	flagConcurrency int
	flagStrict      bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listVoicesCmd)
	rootCmd.AddCommand(listLanguagesCmd)
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging instead of the progress bar")
}

// addRenderFlags registers the flags shared by commands that synthesize audio.
func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagTTS, "tts", "T", "", "TTS provider: "+strings.Join(tts.ProviderNames(), ", ")+" (overrides POLYCAST_TTS_PROVIDER)")
	cmd.Flags().StringVar(&flagMurfAPIKey, "murf-api-key", "", "Murf API key (overrides MURF_API_KEY env var)")
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", "", "Directory for final MP3 files (overrides POLYCAST_OUTPUT_DIR)")
	cmd.Flags().IntVarP(&flagConcurrency, "concurrency", "c", 0, "Concurrent synthesis calls per language (overrides POLYCAST_SYNTH_CONCURRENCY)")
	cmd.Flags().BoolVar(&flagStrict, "strict", false, "Fail a language when any utterance could not be synthesized")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the environment, applies flag overrides, and builds the
// logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if flagTTS != "" {
		cfg.TTSProvider = flagTTS
	}
	if flagMurfAPIKey != "" {
		cfg.MurfAPIKey = flagMurfAPIKey
	}
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	if flagConcurrency > 0 {
		cfg.SynthConcurrency = flagConcurrency
	}
	if flagStrict {
		cfg.StrictSegments = true
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}

	logger, err := observability.InitLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// startTracing exports spans when OTEL_EXPORTER_OTLP_ENDPOINT is set. The
// returned function flushes them.
func startTracing(ctx context.Context, cfg config.Config, logger *slog.Logger) func() {
	if cfg.TraceEndpoint == "" {
		return func() {}
	}
	tp, err := observability.InitTracer(ctx, observability.TraceOptions{
		ServiceName: "polycast",
		Version:     Version,
		Environment: cfg.Environment,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
		return func() {}
	}
	return func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Tracer shutdown error", "error", err)
		}
	}
}

func runListVoices(cmd *cobra.Command, args []string) error {
	langs := voice.Languages()
	if len(args) == 1 {
		langs = []string{strings.ToLower(args[0])}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nAvailable voices:")
	for _, lang := range langs {
		voices, err := voice.AvailableVoices(lang)
		if err != nil {
			return err
		}
		locale, _ := voice.LocaleFor(lang)
		fmt.Fprintf(out, "\n  %s (%s)\n", strings.ToUpper(lang), locale)
		fmt.Fprintf(out, "  %s\n", strings.Repeat("─", 40))
		fmt.Fprintf(out, "  %-20s %s\n", "ID", "NAME")
		for _, v := range voices {
			fmt.Fprintf(out, "  %-20s %s\n", v.ID, v.Name)
		}
	}
	fmt.Fprintln(out)
	return nil
}

func runListLanguages(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, lang := range voice.Languages() {
		locale, _ := voice.LocaleFor(lang)
		def := ""
		if lang == voice.DefaultLanguage {
			def = " (default, not translated)"
		}
		fmt.Fprintf(out, "%-10s %s%s\n", lang, locale, def)
	}
	return nil
}

// loadScriptFile loads a script and settles the character list: explicit
// names win over the names stored in the script.
func loadScriptFile(path string, names string) (*script.Script, error) {
	s, err := script.LoadScript(path)
	if err != nil {
		return nil, err
	}
	if names != "" {
		s.Names = splitList(names)
	}
	if len(s.Names) == 0 {
		return nil, fmt.Errorf("--names is required when %s does not list its characters", path)
	}
	return s, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func checkFFmpeg(bin string) error {
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("FFmpeg not found at %q: install it or set FFMPEG_PATH", bin)
	}
	return nil
}
