package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/polycast/internal/store"
)

type fakeStarter struct {
	req GenerateRequest
	err error
}

func (f *fakeStarter) StartTask(_ context.Context, req GenerateRequest) (string, error) {
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return "01JPODCAST", nil
}

type fakeCatalog struct {
	items map[string]*store.PodcastItem
	owner string
}

func (f *fakeCatalog) GetPodcast(_ context.Context, id string) (*store.PodcastItem, error) {
	return f.items[id], nil
}

func (f *fakeCatalog) ListByOwner(_ context.Context, owner string, _ int, _ string) ([]store.PodcastItem, string, error) {
	f.owner = owner
	var out []store.PodcastItem
	for _, it := range f.items {
		out = append(out, *it)
	}
	return out, "next", nil
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestGeneratePodcastAudio(t *testing.T) {
	starter := &fakeStarter{}
	h := NewHandlers(starter, &fakeCatalog{}, nil)

	res, err := h.HandleGeneratePodcastAudio(context.Background(), call(map[string]any{
		"script": "Alice: Hi.\nBob: Hello.",
		"names":  "Alice, Bob",
		"voices": map[string]any{
			"English": []any{"en-US-natalie", "en-US-ken"},
			"french":  []any{"fr-FR-adélie", ""},
		},
		"owner": "ana",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	assert.Equal(t, "01JPODCAST", body["podcast_id"])

	assert.Equal(t, []string{"Alice", "Bob"}, starter.req.Names)
	assert.Equal(t, []string{"fr-FR-adélie", ""}, starter.req.Voices["french"])
	assert.Contains(t, starter.req.Voices, "english")
}

func TestGeneratePodcastAudioAcceptsSpecs(t *testing.T) {
	starter := &fakeStarter{}
	h := NewHandlers(starter, &fakeCatalog{}, nil)

	res, err := h.HandleGeneratePodcastAudio(context.Background(), call(map[string]any{
		"script": "Alice: Hi.",
		"names":  "Alice",
		"voices": []any{"hindi=hi-IN-kabir"},
		"owner":  "ana",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, []string{"hi-IN-kabir"}, starter.req.Voices["hindi"])
}

func TestGeneratePodcastAudioRejectsNoPlayableLanguage(t *testing.T) {
	starter := &fakeStarter{}
	h := NewHandlers(starter, &fakeCatalog{}, nil)

	res, err := h.HandleGeneratePodcastAudio(context.Background(), call(map[string]any{
		"script": "Alice: Hi.",
		"names":  "Alice",
		"voices": map[string]any{"english": []any{""}},
		"owner":  "ana",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "no playable language")
	assert.Empty(t, starter.req.Script, "no task may start")
}

func TestGeneratePodcastAudioValidation(t *testing.T) {
	h := NewHandlers(&fakeStarter{}, &fakeCatalog{}, nil)

	cases := map[string]map[string]any{
		"script is required": {"names": "A", "owner": "o", "voices": map[string]any{}},
		"names is required":  {"script": "A: x", "owner": "o", "voices": map[string]any{}},
		"owner is required":  {"script": "A: x", "names": "A", "voices": map[string]any{}},
		"voices is required": {"script": "A: x", "names": "A", "owner": "o"},
		"must be an array":   {"script": "A: x", "names": "A", "owner": "o", "voices": map[string]any{"english": "v1"}},
	}
	for want, args := range cases {
		t.Run(want, func(t *testing.T) {
			res, err := h.HandleGeneratePodcastAudio(context.Background(), call(args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), want)
		})
	}
}

func TestGeneratePodcastAudioStartFailure(t *testing.T) {
	h := NewHandlers(&fakeStarter{err: errors.New("max concurrent tasks reached (5)")}, &fakeCatalog{}, nil)
	res, err := h.HandleGeneratePodcastAudio(context.Background(), call(map[string]any{
		"script": "Alice: Hi.",
		"names":  "Alice",
		"voices": map[string]any{"english": []any{"v1"}},
		"owner":  "ana",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "max concurrent tasks")
}

func TestGetPodcast(t *testing.T) {
	catalog := &fakeCatalog{items: map[string]*store.PodcastItem{
		"p1": {
			PodcastID: "p1",
			Status:    "complete",
			Title:     "Morning Chat",
			Languages: map[string]store.LanguageAudio{
				"english": {AudioURL: "https://cdn/audio/p1/english.mp3"},
			},
			FailedLanguages: map[string]string{"hindi": "translate failed"},
		},
	}}
	h := NewHandlers(&fakeStarter{}, catalog, nil)

	res, err := h.HandleGetPodcast(context.Background(), call(map[string]any{"podcast_id": "p1"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body struct {
		Status    string                         `json:"status"`
		Languages map[string]store.LanguageAudio `json:"languages"`
		Failed    map[string]string              `json:"failed_languages"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	assert.Equal(t, "complete", body.Status)
	assert.Equal(t, "https://cdn/audio/p1/english.mp3", body.Languages["english"].AudioURL)
	assert.Equal(t, "translate failed", body.Failed["hindi"])

	res, err = h.HandleGetPodcast(context.Background(), call(map[string]any{"podcast_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListPodcasts(t *testing.T) {
	catalog := &fakeCatalog{items: map[string]*store.PodcastItem{
		"p1": {PodcastID: "p1", Status: "complete", Languages: map[string]store.LanguageAudio{
			"french": {AudioURL: "https://cdn/fr.mp3"},
		}},
	}}
	h := NewHandlers(&fakeStarter{}, catalog, nil)

	res, err := h.HandleListPodcasts(context.Background(), call(map[string]any{"owner": "ana", "limit": float64(5)}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "ana", catalog.owner)

	var body struct {
		Count      int              `json:"count"`
		NextCursor string           `json:"next_cursor"`
		Podcasts   []map[string]any `json:"podcasts"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "next", body.NextCursor)
	assert.Equal(t, map[string]any{"french": "https://cdn/fr.mp3"}, body.Podcasts[0]["audio_urls"])

	res, err = h.HandleListPodcasts(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestToolDefs(t *testing.T) {
	var names []string
	for _, tool := range ToolDefs() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"generate_podcast_audio", "get_podcast", "list_podcasts"}, names)
}
