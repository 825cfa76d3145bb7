package voice

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoPlayableLanguage is returned when no requested language has a single
// character with an assigned voice.
var ErrNoPlayableLanguage = errors.New("no playable language: every requested language has zero assigned voices")

// Assignment maps character display names to voice IDs for one language.
type Assignment struct {
	Language string
	Voices   map[string]string
}

// Resolve builds one Assignment per language from the positional voice
// table. table[lang][i] is the voice for names[i]; missing or blank entries
// drop that character from the language. Languages left with no voices are
// excluded, and if none remain Resolve fails with ErrNoPlayableLanguage.
// Assignments are sorted by language name.
func Resolve(names []string, table map[string][]string) ([]Assignment, error) {
	langs := make([]string, 0, len(table))
	for lang := range table {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	var out []Assignment
	for _, lang := range langs {
		ids := table[lang]
		voices := make(map[string]string)
		for i, name := range names {
			if i >= len(ids) {
				break
			}
			id := strings.TrimSpace(ids[i])
			if id == "" || strings.TrimSpace(name) == "" {
				continue
			}
			voices[name] = id
		}
		if len(voices) == 0 {
			continue
		}
		out = append(out, Assignment{Language: lang, Voices: voices})
	}

	if len(out) == 0 {
		return nil, ErrNoPlayableLanguage
	}
	return out, nil
}

// ParseVoiceSpec parses "language=voice1,voice2" into its parts. Empty
// positions are kept so that "french=v3," leaves the second character silent.
func ParseVoiceSpec(spec string) (string, []string, error) {
	lang, list, ok := strings.Cut(spec, "=")
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !ok || lang == "" {
		return "", nil, fmt.Errorf("invalid voice spec %q: want language=voice1,voice2", spec)
	}
	parts := strings.Split(list, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return lang, parts, nil
}

// ParseVoiceSpecs parses several specs into a voice table. A language given
// twice is an error.
func ParseVoiceSpecs(specs []string) (map[string][]string, error) {
	table := make(map[string][]string, len(specs))
	for _, spec := range specs {
		lang, ids, err := ParseVoiceSpec(spec)
		if err != nil {
			return nil, err
		}
		if _, dup := table[lang]; dup {
			return nil, fmt.Errorf("language %q given more than once", lang)
		}
		table[lang] = ids
	}
	return table, nil
}
