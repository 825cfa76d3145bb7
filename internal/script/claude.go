package script

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

const (
	temperature = 0.7
	maxTokens   = 8192
	maxRetries  = 3
	backoffMult = 2
)

var initialBackoff = 1 * time.Second

type ClaudeGenerator struct {
	model  string
	apiKey string
}

// NewClaudeGenerator creates a generator for the named model alias. An empty
// apiKey defers to ANTHROPIC_API_KEY.
func NewClaudeGenerator(model, apiKey string) *ClaudeGenerator {
	return &ClaudeGenerator{model: model, apiKey: apiKey}
}

func (g *ClaudeGenerator) Generate(ctx context.Context, opts GenerateOptions) (*Script, error) {
	theme, err := checkOptions(opts)
	if err != nil {
		return nil, err
	}

	var reqOpts []option.RequestOption
	if g.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(g.apiKey))
	}
	client := anthropic.NewClient(reqOpts...)

	modelID := claudeModels[g.model]
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}

	return generateWithRetry(ctx, "claude", opts.Names, func(ctx context.Context) (string, error) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(modelID),
			MaxTokens:   maxTokens,
			Temperature: anthropic.Float(temperature),
			System: []anthropic.TextBlockParam{
				{Text: buildSystemPrompt(theme)},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(opts, theme))),
			},
		})
		if err != nil {
			return "", err
		}
		return extractText(message), nil
	})
}

func checkOptions(opts GenerateOptions) (Theme, error) {
	theme, ok := LookupTheme(opts.Theme)
	if !ok {
		return Theme{}, fmt.Errorf("theme %q not supported", opts.Theme)
	}
	if len(opts.Names) == 0 || len(opts.Names) > MaxCharacters {
		return Theme{}, fmt.Errorf("need 1-%d character names, got %d", MaxCharacters, len(opts.Names))
	}
	return theme, nil
}

// generateWithRetry calls the model until its reply parses into a script,
// backing off exponentially between attempts.
func generateWithRetry(ctx context.Context, label string, names []string, call func(context.Context) (string, error)) (*Script, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		text, err := call(ctx)
		if err == nil {
			var s *Script
			s, err = parseGenerated(text, names)
			if err == nil {
				return s, nil
			}
		}
		lastErr = fmt.Errorf("%s generate (attempt %d/%d): %w", label, attempt, maxRetries, err)

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(backoffMult)
		}
	}

	return nil, lastErr
}

func extractText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

// parseGenerated decodes the model's JSON reply and checks that the dialogue
// has at least one line the parser will accept.
func parseGenerated(text string, names []string) (*Script, error) {
	text = strings.TrimSpace(extractJSON(stripMarkdownFences(text)))
	if text == "" {
		return nil, fmt.Errorf("no JSON content found in response")
	}

	var s Script
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w\nRaw text (first 500 chars): %s", err, truncate(text, 500))
	}
	s.Names = names

	probe := make(map[string]string, len(names))
	for _, n := range names {
		probe[n] = n
	}
	if len(Parse(s.Content, probe)) == 0 {
		return nil, fmt.Errorf("script has no lines for characters %s", strings.Join(names, ", "))
	}
	return &s, nil
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")

func stripMarkdownFences(text string) string {
	if matches := fenceRe.FindStringSubmatch(text); len(matches) > 1 {
		return matches[1]
	}
	return text
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
