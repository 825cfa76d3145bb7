package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.json")
	s := &Script{
		Title:       "Momentum",
		Description: "A chat about delivery.",
		Content:     "Sarah: Welcome.\nKen: Thanks.",
		Names:       []string{"Sarah", "Ken"},
	}
	require.NoError(t, SaveScript(s, path))

	loaded, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoadScriptRawText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.txt")
	require.NoError(t, os.WriteFile(path, []byte("Alice: Hi.\nBob: Hello.\n"), 0644))

	loaded, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, "Alice: Hi.\nBob: Hello.\n", loaded.Content)
	assert.Empty(t, loaded.Names)
}

func TestLoadScriptErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadScript(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0644))
	_, err = LoadScript(empty)
	assert.Error(t, err)

	noContent := filepath.Join(dir, "nocontent.json")
	require.NoError(t, os.WriteFile(noContent, []byte(`{"title":"x"}`), 0644))
	_, err = LoadScript(noContent)
	assert.ErrorContains(t, err, "no content")
}

func TestParseGenerated(t *testing.T) {
	reply := "```json\n{\"title\":\"T\",\"description\":\"D\",\"content\":\"Alice: Hi.\\nBob: Hey.\"}\n```"

	s, err := parseGenerated(reply, []string{"Alice", "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "T", s.Title)
	assert.Equal(t, []string{"Alice", "Bob"}, s.Names)
}

func TestParseGeneratedRejectsUnusableDialogue(t *testing.T) {
	_, err := parseGenerated(`{"title":"T","content":"Narrator: nobody here"}`, []string{"Alice"})
	assert.Error(t, err)

	_, err = parseGenerated("no json at all", []string{"Alice"})
	assert.Error(t, err)
}

func TestThemes(t *testing.T) {
	assert.Len(t, ThemeNames(), 8)
	th, ok := LookupTheme("interview")
	require.True(t, ok)
	assert.Contains(t, buildUserPrompt(GenerateOptions{Idea: "tides", Names: []string{"Ana", "Ben"}}, th), "Ana: ...")
	_, ok = LookupTheme("opera")
	assert.False(t, ok)
}

func TestUserPromptReference(t *testing.T) {
	th, _ := LookupTheme("casual")
	without := buildUserPrompt(GenerateOptions{Idea: "tides", Names: []string{"Ana"}}, th)
	assert.NotContains(t, without, "<source>")

	with := buildUserPrompt(GenerateOptions{Idea: "tides", Names: []string{"Ana"}, Reference: "The moon pulls the sea."}, th)
	assert.Contains(t, with, "<source>\nThe moon pulls the sea.\n</source>")
}
