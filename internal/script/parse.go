package script

import (
	"regexp"
	"sort"
	"strings"
)

var multiSpaceRe = regexp.MustCompile(` +`)

// Parse splits dialogue text into ordered utterances. voices maps character
// display names to the voice that reads them. Lines that do not start with
// "<Name>:" for a known name are skipped, so stray narration in generated
// scripts is tolerated. Empty input yields an empty slice.
func Parse(content string, voices map[string]string) []Utterance {
	names := speakerNames(voices)
	if len(names) == 0 {
		return []Utterance{}
	}

	content = multiSpaceRe.ReplaceAllString(content, " ")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	utterances := []Utterance{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, name := range names {
			prefix := name + ":"
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			utterances = append(utterances, Utterance{
				VoiceID: voices[name],
				Text:    strings.TrimSpace(line[len(prefix):]),
				Order:   len(utterances),
			})
			break
		}
	}
	return utterances
}

// speakerNames returns the names that have a voice, longest first so a
// name that prefixes another ("Ann" and "Anna") never steals its lines.
func speakerNames(voices map[string]string) []string {
	names := make([]string, 0, len(voices))
	for name, id := range voices {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(id) == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// Texts returns the utterance texts in order.
func Texts(utts []Utterance) []string {
	out := make([]string, len(utts))
	for i, u := range utts {
		out[i] = u.Text
	}
	return out
}
