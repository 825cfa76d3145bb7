package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/apresai/polycast/internal/assembly"
	"github.com/apresai/polycast/internal/config"
	"github.com/apresai/polycast/internal/murf"
	"github.com/apresai/polycast/internal/progress"
	"github.com/apresai/polycast/internal/translate"
	"github.com/apresai/polycast/internal/tts"
)

// FromConfig builds a pipeline with the configured TTS provider, the Murf
// translator when a key is set, and the ffmpeg encoder. awsCfg may be nil.
// The returned close function releases the provider.
func FromConfig(ctx context.Context, cfg config.Config, awsCfg *aws.Config, cb progress.Callback, logger *slog.Logger) (*Pipeline, func() error, error) {
	provider, err := tts.NewProvider(ctx, cfg.TTSProvider, tts.ProviderConfig{
		MurfAPIKey:  cfg.MurfAPIKey,
		MurfBaseURL: cfg.MurfBaseURL,
		Style:       cfg.MurfStyle,
		Timeout:     cfg.RequestTimeout,
		AWS:         awsCfg,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create TTS provider: %w", err)
	}

	var translator translate.Translator
	if cfg.CanTranslate() {
		translator = translate.NewMurfTranslator(murfClient(cfg, provider), logger)
	}

	synth := tts.NewSynthesizer(provider, tts.Options{
		Concurrency:       cfg.SynthConcurrency,
		RequestsPerMinute: cfg.RequestsPerMinute,
		RequestTimeout:    cfg.RequestTimeout,
	}, logger)
	assembler := assembly.NewAssembler(assembly.NewFFmpegEncoder(cfg.FFmpegPath), logger)

	p := New(synth, translator, assembler, Options{
		LanguageConcurrency: cfg.LanguageConcurrency,
		StrictSegments:      cfg.StrictSegments,
		TempDir:             cfg.TempDir,
		OutputDir:           cfg.OutputDir,
		FFprobePath:         cfg.FFprobePath,
		Progress:            cb,
	}, logger)
	return p, provider.Close, nil
}

// murfClient reuses the provider's client when Murf also synthesizes.
func murfClient(cfg config.Config, provider tts.Provider) *murf.Client {
	if mp, ok := provider.(*tts.MurfProvider); ok {
		return mp.Client()
	}
	return murf.NewClient(cfg.MurfAPIKey, cfg.MurfBaseURL, cfg.RequestTimeout)
}
