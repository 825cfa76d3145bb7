package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/polycast/internal/config"
	"github.com/apresai/polycast/internal/pipeline"
	"github.com/apresai/polycast/internal/service"
	"github.com/apresai/polycast/internal/store"
	"github.com/apresai/polycast/internal/tts"
	"github.com/apresai/polycast/internal/voice"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Alice", "Bob"}, splitList(" Alice, ,Bob "))
	assert.Nil(t, splitList(""))
}

func TestLoadScriptFile(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "episode.txt")
	require.NoError(t, os.WriteFile(raw, []byte("Alice: Hi\nBob: Hello\n"), 0644))

	_, err := loadScriptFile(raw, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--names is required")

	s, err := loadScriptFile(raw, "Alice,Bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, s.Names)

	stored := filepath.Join(dir, "episode.json")
	require.NoError(t, os.WriteFile(stored, []byte(`{"title":"T","content":"Ana: Hola","names":["Ana"]}`), 0644))

	s, err = loadScriptFile(stored, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, s.Names)

	s, err = loadScriptFile(stored, "Eve")
	require.NoError(t, err)
	assert.Equal(t, []string{"Eve"}, s.Names, "flag overrides stored names")
}

func TestCheckTranslation(t *testing.T) {
	names := []string{"Alice"}
	english := map[string][]string{"english": {"en-US-natalie"}}
	both := map[string][]string{"english": {"en-US-natalie"}, "hindi": {"hi-IN-kabir"}}

	assert.NoError(t, checkTranslation(config.Config{}, names, english))

	err := checkTranslation(config.Config{}, names, both)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMissingCredentials))
	assert.Contains(t, err.Error(), "hindi")

	assert.NoError(t, checkTranslation(config.Config{MurfAPIKey: "k"}, names, both))
}

func TestCheckTranslationSkipsSilentLanguage(t *testing.T) {
	cfg := config.Config{TTSProvider: "polly"}
	names := []string{"Alice", "Bob"}
	voices := map[string][]string{
		"english": {"Joanna", "Matthew"},
		"french":  {"", ""},
	}

	assert.NoError(t, checkTranslation(cfg, names, voices))
}

func TestCheckTranslationAllSilent(t *testing.T) {
	names := []string{"Alice", "Bob"}
	voices := map[string][]string{"french": {"", ""}, "hindi": {}}

	err := checkTranslation(config.Config{}, names, voices)
	require.Error(t, err)
	assert.True(t, errors.Is(err, voice.ErrNoPlayableLanguage))
	assert.False(t, errors.Is(err, config.ErrMissingCredentials))
}

func TestGenerateHelpUsesCatalogVoices(t *testing.T) {
	var specs []string
	fields := strings.Fields(generateCmd.Long)
	for i := 1; i < len(fields); i++ {
		if fields[i-1] == "--voices" && strings.Contains(fields[i], "=") {
			specs = append(specs, fields[i])
		}
	}
	require.NotEmpty(t, specs)

	table, err := voice.ParseVoiceSpecs(specs)
	require.NoError(t, err)
	for lang, ids := range table {
		catalog, err := voice.AvailableVoices(lang)
		require.NoError(t, err, lang)
		known := make(map[string]bool, len(catalog))
		for _, v := range catalog {
			known[v.ID] = true
		}
		for _, id := range ids {
			assert.True(t, known[id], "%s voice %s", lang, id)
		}
	}
}

func TestPrintResult(t *testing.T) {
	res := &pipeline.Result{
		RunID: "run1",
		Languages: map[string]pipeline.LanguageResult{
			"hindi":   {Language: "hindi", Path: "/out/run1hindi_final.mp3"},
			"english": {Language: "english", Path: "/out/run1english_final.mp3", Duration: "1:05", Dropped: []tts.Dropped{{Order: 2, Reason: "service error"}}},
		},
		Failed: map[string]error{"french": errors.New("translate: mismatch")},
	}

	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Run run1")
	assert.Contains(t, out, "/out/run1english_final.mp3 (1:05)")
	assert.Contains(t, out, "dropped line 2: service error")
	assert.Contains(t, out, "Failed languages: french")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("english")), bytes.Index(buf.Bytes(), []byte("hindi")))
}

func TestWriteJSON(t *testing.T) {
	res := &pipeline.Result{
		RunID:     "run1",
		Languages: map[string]pipeline.LanguageResult{"english": {Language: "english", Path: "/out/a.mp3", SizeBytes: 10}},
		Failed:    map[string]error{"tamil": errors.New("boom")},
	}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, res))

	var got struct {
		RunID     string                             `json:"runId"`
		Languages map[string]pipeline.LanguageResult `json:"languages"`
		Failed    map[string]string                  `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run1", got.RunID)
	assert.Equal(t, "/out/a.mp3", got.Languages["english"].Path)
	assert.Equal(t, "boom", got.Failed["tamil"])
}

func TestEpisodeTitle(t *testing.T) {
	assert.Equal(t, "Flag", episodeTitle("Flag", "Script", "/x/ep.txt"))
	assert.Equal(t, "Script", episodeTitle("", "Script", "/x/ep.txt"))
	assert.Equal(t, "ep", episodeTitle("", "", "/x/ep.txt"))
}

func TestPrintPublished(t *testing.T) {
	var buf bytes.Buffer
	printPublished(&buf, "Episode", &service.Published{
		ID:        "01ABC",
		Languages: map[string]store.LanguageAudio{"english": {AudioURL: "https://cdn/audio/01ABC/english.mp3"}},
		Failed:    map[string]string{"german": "assemble: ffmpeg failed"},
	})
	out := buf.String()
	assert.Contains(t, out, "Published: Episode (id: 01ABC)")
	assert.Contains(t, out, "https://cdn/audio/01ABC/english.mp3")
	assert.Contains(t, out, "german     failed: assemble: ffmpeg failed")
}

func TestListLanguages(t *testing.T) {
	var buf bytes.Buffer
	listLanguagesCmd.SetOut(&buf)
	require.NoError(t, runListLanguages(listLanguagesCmd, nil))
	assert.Contains(t, buf.String(), "english    en-US (default, not translated)")
	assert.Contains(t, buf.String(), "hindi      hi-IN")
}

func TestListVoices(t *testing.T) {
	var buf bytes.Buffer
	listVoicesCmd.SetOut(&buf)
	require.NoError(t, runListVoices(listVoicesCmd, []string{"French"}))
	assert.Contains(t, buf.String(), "FRENCH (fr-FR)")
	assert.NotContains(t, buf.String(), "ENGLISH")

	assert.Error(t, runListVoices(listVoicesCmd, []string{"klingon"}))
}

func TestCheckFFmpegMissing(t *testing.T) {
	err := checkFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FFMPEG_PATH")
}

func TestStartTracingDisabledWithoutEndpoint(t *testing.T) {
	stop := startTracing(context.Background(), config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NotNil(t, stop)
	stop()
}
