package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apresai/polycast/internal/murf"
	"github.com/apresai/polycast/internal/script"
	"github.com/apresai/polycast/internal/voice"
)

// ErrTranslationMismatch is returned when the service answers with a
// different number of texts than it was sent.
var ErrTranslationMismatch = errors.New("translation count mismatch")

// Translator converts utterances into another language. Voice IDs and order
// indexes are preserved exactly; only Text changes.
type Translator interface {
	Translate(ctx context.Context, utts []script.Utterance, language string) ([]script.Utterance, error)
}

// batchClient is the slice of the Murf client the translator needs.
type batchClient interface {
	Translate(ctx context.Context, targetLocale string, texts []string) ([]string, error)
}

// MurfTranslator sends every utterance of a job in one batched request so the
// service sees the whole conversation and round trips stay at one.
type MurfTranslator struct {
	client  batchClient
	backoff murf.Backoff
	log     *slog.Logger
}

func NewMurfTranslator(client batchClient, logger *slog.Logger) *MurfTranslator {
	if logger == nil {
		logger = slog.Default()
	}
	return &MurfTranslator{client: client, log: logger}
}

func (t *MurfTranslator) Translate(ctx context.Context, utts []script.Utterance, language string) ([]script.Utterance, error) {
	if len(utts) == 0 {
		return []script.Utterance{}, nil
	}
	locale, err := voice.LocaleFor(language)
	if err != nil {
		return nil, err
	}

	texts := script.Texts(utts)
	var translated []string
	err = t.backoff.Retry(ctx, func() error {
		var callErr error
		translated, callErr = t.client.Translate(ctx, locale, texts)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("translate to %s: %w", locale, err)
	}

	out, err := Reattach(utts, translated)
	if err != nil {
		return nil, fmt.Errorf("translate to %s: %w", locale, err)
	}
	t.log.DebugContext(ctx, "Translated utterances", "language", language, "count", len(out))
	return out, nil
}

// Reattach pairs translated texts with the voice and order of the utterance
// at the same request position.
func Reattach(utts []script.Utterance, translated []string) ([]script.Utterance, error) {
	if len(translated) != len(utts) {
		return nil, fmt.Errorf("%w: sent %d, received %d", ErrTranslationMismatch, len(utts), len(translated))
	}
	out := make([]script.Utterance, len(utts))
	for i, u := range utts {
		out[i] = script.Utterance{VoiceID: u.VoiceID, Text: translated[i], Order: u.Order}
	}
	return out, nil
}
