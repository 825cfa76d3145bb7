package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/polycast/internal/store"
	"github.com/apresai/polycast/internal/voice"
)

var tracer = otel.Tracer("polycast-mcp")

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "generate_podcast_audio",
			Description: "Render a multi-speaker dialogue script into one MP3 per language. Starts an async task and returns a podcast ID. Use get_podcast to check progress.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"script": map[string]any{
						"type":        "string",
						"description": "Dialogue with one line per utterance, each starting with \"Name:\"",
					},
					"names": map[string]any{
						"type":        "string",
						"description": "Comma-separated character names, in the same order as each language's voices",
					},
					"voices": map[string]any{
						"type":        "object",
						"description": "Language to voice IDs, e.g. {\"english\": [\"en-US-natalie\", \"en-US-ken\"]}. An empty string leaves that character silent in that language.",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "Episode title",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Episode description",
					},
					"owner": map[string]any{
						"type":        "string",
						"description": "Owner the podcast is listed under",
					},
				},
				Required: []string{"script", "names", "voices", "owner"},
			},
		},
		{
			Name:        "get_podcast",
			Description: "Get the status and details of a podcast by ID, including the audio URL of every finished language.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"podcast_id": map[string]any{
						"type":        "string",
						"description": "The podcast ID returned from generate_podcast_audio",
					},
				},
				Required: []string{"podcast_id"},
			},
		},
		{
			Name:        "list_podcasts",
			Description: "List an owner's podcasts, newest first.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"owner": map[string]any{
						"type":        "string",
						"description": "Owner whose podcasts to list",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 20)",
						"default":     20,
					},
					"cursor": map[string]any{
						"type":        "string",
						"description": "Pagination cursor from a previous list_podcasts call",
					},
				},
				Required: []string{"owner"},
			},
		},
	}
}

// Starter starts generation tasks.
type Starter interface {
	StartTask(ctx context.Context, req GenerateRequest) (string, error)
}

// Catalog reads podcast records.
type Catalog interface {
	GetPodcast(ctx context.Context, id string) (*store.PodcastItem, error)
	ListByOwner(ctx context.Context, owner string, limit int, cursor string) ([]store.PodcastItem, string, error)
}

// Handlers contains tool handler implementations.
type Handlers struct {
	tasks   Starter
	catalog Catalog
	log     *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(tasks Starter, catalog Catalog, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{tasks: tasks, catalog: catalog, log: logger}
}

// HandleGeneratePodcastAudio validates the request and starts a task.
// Requests without a playable language are rejected before any work starts.
func (h *Handlers) HandleGeneratePodcastAudio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_podcast_audio")
	defer span.End()

	genReq := GenerateRequest{
		Title:       mcp.ParseString(req, "title", ""),
		Description: mcp.ParseString(req, "description", ""),
		Script:      mcp.ParseString(req, "script", ""),
		Names:       splitNames(mcp.ParseString(req, "names", "")),
		Owner:       mcp.ParseString(req, "owner", ""),
	}
	if strings.TrimSpace(genReq.Script) == "" {
		span.SetStatus(codes.Error, "missing script")
		return mcp.NewToolResultError("script is required"), nil
	}
	if len(genReq.Names) == 0 {
		span.SetStatus(codes.Error, "missing names")
		return mcp.NewToolResultError("names is required"), nil
	}
	if genReq.Owner == "" {
		span.SetStatus(codes.Error, "missing owner")
		return mcp.NewToolResultError("owner is required"), nil
	}

	voices, err := parseVoices(req.GetArguments()["voices"])
	if err != nil {
		span.SetStatus(codes.Error, "invalid voices")
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := voice.Resolve(genReq.Names, voices); err != nil {
		span.SetStatus(codes.Error, "no playable language")
		return mcp.NewToolResultError(err.Error()), nil
	}
	genReq.Voices = voices

	span.SetAttributes(
		attribute.Int("languages", len(voices)),
		attribute.Int("characters", len(genReq.Names)),
	)

	id, err := h.tasks.StartTask(ctx, genReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start task failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to start task: %v", err)), nil
	}

	span.SetAttributes(attribute.String("podcast_id", id))
	h.log.InfoContext(ctx, "Podcast generation started", "podcast_id", id, "languages", len(voices))

	return jsonResult(map[string]any{
		"podcast_id": id,
		"status":     "submitted",
		"message":    "Podcast generation started. Use get_podcast with this podcast_id to check progress.",
	})
}

// HandleGetPodcast returns podcast details.
func (h *Handlers) HandleGetPodcast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.get_podcast")
	defer span.End()

	id := mcp.ParseString(req, "podcast_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing podcast_id")
		return mcp.NewToolResultError("podcast_id is required"), nil
	}
	span.SetAttributes(attribute.String("podcast_id", id))

	item, err := h.catalog.GetPodcast(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get podcast failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to get podcast: %v", err)), nil
	}
	if item == nil {
		span.SetStatus(codes.Error, "not found")
		return mcp.NewToolResultError(fmt.Sprintf("podcast %s not found", id)), nil
	}

	result := map[string]any{
		"podcast_id":       item.PodcastID,
		"status":           item.Status,
		"progress_percent": item.ProgressPercent,
		"stage_message":    item.StageMessage,
		"created_at":       item.CreatedAt,
	}
	if item.Title != "" {
		result["title"] = item.Title
	}
	if item.Description != "" {
		result["description"] = item.Description
	}
	if len(item.Languages) > 0 {
		result["languages"] = item.Languages
	}
	if len(item.FailedLanguages) > 0 {
		result["failed_languages"] = item.FailedLanguages
	}
	if item.ErrorMessage != "" {
		result["error"] = item.ErrorMessage
	}
	if item.TTSProvider != "" {
		result["tts_provider"] = item.TTSProvider
	}

	return jsonResult(result)
}

// HandleListPodcasts returns a paginated list of an owner's podcasts.
func (h *Handlers) HandleListPodcasts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.list_podcasts")
	defer span.End()

	owner := mcp.ParseString(req, "owner", "")
	limit := parseIntParam(req, "limit", 20)
	cursor := mcp.ParseString(req, "cursor", "")
	if owner == "" {
		span.SetStatus(codes.Error, "missing owner")
		return mcp.NewToolResultError("owner is required"), nil
	}

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.String("cursor", cursor),
	)

	items, nextCursor, err := h.catalog.ListByOwner(ctx, owner, limit, cursor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list podcasts failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to list podcasts: %v", err)), nil
	}
	span.SetAttributes(attribute.Int("result_count", len(items)))

	podcasts := make([]map[string]any, 0, len(items))
	for _, item := range items {
		p := map[string]any{
			"podcast_id": item.PodcastID,
			"status":     item.Status,
			"created_at": item.CreatedAt,
		}
		if item.Title != "" {
			p["title"] = item.Title
		}
		if len(item.Languages) > 0 {
			urls := make(map[string]string, len(item.Languages))
			for lang, a := range item.Languages {
				urls[lang] = a.AudioURL
			}
			p["audio_urls"] = urls
		}
		podcasts = append(podcasts, p)
	}

	result := map[string]any{
		"podcasts": podcasts,
		"count":    len(podcasts),
	}
	if nextCursor != "" {
		result["next_cursor"] = nextCursor
	}
	return jsonResult(result)
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// parseVoices accepts either an object of language to voice ID arrays or an
// array of "language=v1,v2" specs.
func parseVoices(raw any) (map[string][]string, error) {
	switch v := raw.(type) {
	case map[string]any:
		voices := make(map[string][]string, len(v))
		for lang, ids := range v {
			list, ok := ids.([]any)
			if !ok {
				return nil, fmt.Errorf("voices.%s must be an array of voice IDs", lang)
			}
			out := make([]string, len(list))
			for i, id := range list {
				s, ok := id.(string)
				if !ok {
					return nil, fmt.Errorf("voices.%s[%d] must be a string", lang, i)
				}
				out[i] = s
			}
			voices[strings.ToLower(strings.TrimSpace(lang))] = out
		}
		return voices, nil
	case []any:
		specs := make([]string, 0, len(v))
		for _, s := range v {
			str, ok := s.(string)
			if !ok {
				return nil, errors.New("voices entries must be strings like \"english=v1,v2\"")
			}
			specs = append(specs, str)
		}
		return voice.ParseVoiceSpecs(specs)
	case nil:
		return nil, errors.New("voices is required")
	default:
		return nil, errors.New("voices must be an object of language to voice IDs")
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}
