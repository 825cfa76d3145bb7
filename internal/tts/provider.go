package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// AudioFormat is the encoding of synthesized audio.
type AudioFormat string

const FormatMP3 AudioFormat = "mp3"

// Ext returns the file extension for the format, without the dot.
func (f AudioFormat) Ext() string {
	if f == "" {
		return string(FormatMP3)
	}
	return string(f)
}

// Voice selects a synthetic voice. ID is opaque to the pipeline; Locale is
// the BCP-47 code of the job's language, needed by providers that require it.
type Voice struct {
	ID     string
	Locale string
}

// AudioResult is the output of a synthesis call. Providers either return the
// audio inline in Data or a URL that must be fetched.
type AudioResult struct {
	Data   []byte
	URL    string
	Format AudioFormat
}

// Provider synthesizes speech for one piece of text.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error)
	Close() error
}

// Downloader fetches audio that a provider returned by URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// ProviderConfig carries what the concrete providers need.
type ProviderConfig struct {
	MurfAPIKey  string
	MurfBaseURL string
	Style       string
	Timeout     time.Duration
	// AWS is used by the polly provider. Nil loads the default config.
	AWS *aws.Config
}

// ProviderNames lists the providers NewProvider understands.
func ProviderNames() []string {
	return []string{"murf", "polly", "google"}
}

// NewProvider creates a TTS provider by name.
func NewProvider(ctx context.Context, name string, cfg ProviderConfig) (Provider, error) {
	switch name {
	case "", "murf":
		return NewMurfProvider(cfg), nil
	case "polly":
		return NewPollyProvider(ctx, cfg)
	case "google":
		return NewGoogleProvider(ctx)
	default:
		return nil, fmt.Errorf("unknown TTS provider %q: choose one of %s", name, strings.Join(ProviderNames(), ", "))
	}
}
