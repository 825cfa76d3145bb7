package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultBaseURL = "https://api.murf.ai/v1"
	DefaultStyle   = "Conversational"

	maxErrorBody = 512
)

type speechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Style   string `json:"style,omitempty"`
}

type speechResponse struct {
	AudioFile string `json:"audioFile"`
}

type translateRequest struct {
	TargetLanguage string   `json:"targetLanguage"`
	Texts          []string `json:"texts"`
}

type translateResponse struct {
	Translations []struct {
		TranslatedText string `json:"translated_text"`
	} `json:"translations"`
}

// Client talks to the Murf speech and translation API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Murf client. An empty baseURL uses DefaultBaseURL; a
// zero timeout uses 60s.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateSpeech asks Murf to render text with the given voice and returns the
// URL of the generated audio file.
func (c *Client) GenerateSpeech(ctx context.Context, text, voiceID, style string) (string, error) {
	var resp speechResponse
	if err := c.postJSON(ctx, "/speech/generate", speechRequest{Text: text, VoiceID: voiceID, Style: style}, &resp); err != nil {
		return "", err
	}
	if resp.AudioFile == "" {
		return "", fmt.Errorf("murf speech response has no audio file")
	}
	return resp.AudioFile, nil
}

// Translate translates texts into the target locale in a single call. The
// returned slice is positionally aligned with texts.
func (c *Client) Translate(ctx context.Context, targetLocale string, texts []string) ([]string, error) {
	var resp translateResponse
	if err := c.postJSON(ctx, "/text/translate", translateRequest{TargetLanguage: targetLocale, Texts: texts}, &resp); err != nil {
		return nil, err
	}
	out := make([]string, len(resp.Translations))
	for i, t := range resp.Translations {
		out[i] = t.TranslatedText
	}
	return out, nil
}

// Download fetches the bytes behind an audio URL returned by GenerateSpeech.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RetryableError{Body: fmt.Sprintf("download audio: %v", err)}
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded audio is empty")
	}
	return data, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RetryableError{Body: fmt.Sprintf("network error: %v", err)}
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// checkStatus maps non-200 responses to errors. 429 and 5xx are retryable.
func checkStatus(res *http.Response) error {
	if res.StatusCode == http.StatusOK {
		return nil
	}
	errBody, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError {
		var retryAfter time.Duration
		if ra := res.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RetryableError{StatusCode: res.StatusCode, Body: string(errBody), RetryAfter: retryAfter}
	}
	return fmt.Errorf("murf API error (status %d): %s", res.StatusCode, string(errBody))
}
