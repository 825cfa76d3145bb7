package tts

import (
	"context"

	"github.com/apresai/polycast/internal/murf"
)

// MurfProvider implements Provider using the Murf speech API. Murf answers
// with a URL, so the provider also implements Downloader.
type MurfProvider struct {
	client *murf.Client
	style  string
}

func NewMurfProvider(cfg ProviderConfig) *MurfProvider {
	style := cfg.Style
	if style == "" {
		style = murf.DefaultStyle
	}
	return &MurfProvider{
		client: murf.NewClient(cfg.MurfAPIKey, cfg.MurfBaseURL, cfg.Timeout),
		style:  style,
	}
}

func (p *MurfProvider) Name() string { return "murf" }

func (p *MurfProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	url, err := p.client.GenerateSpeech(ctx, text, voice.ID, p.style)
	if err != nil {
		return AudioResult{}, err
	}
	return AudioResult{URL: url, Format: FormatMP3}, nil
}

func (p *MurfProvider) Download(ctx context.Context, url string) ([]byte, error) {
	return p.client.Download(ctx, url)
}

// Client exposes the underlying API client so the translator can share it.
func (p *MurfProvider) Client() *murf.Client { return p.client }

func (p *MurfProvider) Close() error { return nil }

var (
	_ Provider   = (*MurfProvider)(nil)
	_ Downloader = (*MurfProvider)(nil)
)
