package script

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Script is a generated or hand-written dialogue. Content holds the raw
// "Name: line" text; Names lists the characters in voice-assignment order.
type Script struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Names       []string `json:"names"`
}

// Utterance is one speaker line bound to the voice that will read it.
// Order is the line's position in the source script and survives every
// later stage unchanged.
type Utterance struct {
	VoiceID string `json:"voiceId"`
	Text    string `json:"text"`
	Order   int    `json:"order"`
}

type GenerateOptions struct {
	Idea  string
	Theme string
	Names []string
	// Reference is optional source material the episode should draw on.
	Reference string
}

type Generator interface {
	Generate(ctx context.Context, opts GenerateOptions) (*Script, error)
}

func SaveScript(s *Script, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write script to %s: %w", path, err)
	}
	return nil
}

// LoadScript reads a script JSON file. A file that is not JSON is accepted
// as raw dialogue text with no metadata; the caller then supplies Names.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script from %s: %w", path, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		if trimmed == "" {
			return nil, fmt.Errorf("script %s is empty", path)
		}
		return &Script{Content: string(data)}, nil
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script from %s: %w", path, err)
	}
	if strings.TrimSpace(s.Content) == "" {
		return nil, fmt.Errorf("script %s has no content", path)
	}
	return &s, nil
}
