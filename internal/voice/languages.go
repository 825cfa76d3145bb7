package voice

import (
	"fmt"
	"sort"
)

// DefaultLanguage is the language scripts are written in. It is never
// translated.
const DefaultLanguage = "english"

var locales = map[string]string{
	"english": "en-US",
	"bengali": "bn-IN",
	"hindi":   "hi-IN",
	"tamil":   "ta-IN",
	"italian": "it-IT",
	"french":  "fr-FR",
	"german":  "de-DE",
}

// LocaleFor returns the BCP-47 locale used by the speech and translation
// services for a language name.
func LocaleFor(language string) (string, error) {
	if l, ok := locales[language]; ok {
		return l, nil
	}
	return "", fmt.Errorf("unsupported language %q", language)
}

// Languages returns the supported language names, sorted.
func Languages() []string {
	out := make([]string, 0, len(locales))
	for l := range locales {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// VoiceInfo describes a catalog voice.
type VoiceInfo struct {
	ID   string
	Name string
}

var catalog = map[string][]VoiceInfo{
	"english": {
		{ID: "en-US-natalie", Name: "Natalie"},
		{ID: "en-US-ken", Name: "Ken"},
		{ID: "en-US-amara", Name: "Amara"},
		{ID: "en-US-charles", Name: "Charles"},
		{ID: "en-US-maverick", Name: "Maverick"},
	},
	"hindi": {
		{ID: "hi-IN-amit", Name: "Amit"},
		{ID: "hi-IN-shweta", Name: "Shweta"},
		{ID: "hi-IN-rahul", Name: "Rahul"},
		{ID: "hi-IN-shaan", Name: "Shan"},
		{ID: "hi-IN-ayushi", Name: "Ayushi"},
	},
	"bengali": {
		{ID: "bn-IN-anwesha", Name: "Anwesha"},
		{ID: "bn-IN-ishani", Name: "Ishani"},
		{ID: "bn-IN-abhik", Name: "Abhik"},
	},
	"french": {
		{ID: "fr-FR-adélie", Name: "Adélie"},
		{ID: "fr-FR-justine", Name: "Justine"},
		{ID: "fr-FR-louis", Name: "Louis"},
		{ID: "fr-FR-maxime", Name: "Maxime"},
		{ID: "fr-FR-louise", Name: "Louise"},
	},
	"italian": {
		{ID: "it-IT-lorenzo", Name: "Lorenzo"},
		{ID: "it-IT-greta", Name: "Greta"},
		{ID: "it-IT-vincenzo", Name: "Vincenzo"},
		{ID: "it-IT-giorgio", Name: "Giorgio"},
		{ID: "it-IT-vera", Name: "Vera"},
	},
	"german": {
		{ID: "de-DE-lia", Name: "Lia"},
		{ID: "de-DE-matthias", Name: "Matthias"},
		{ID: "de-DE-lara", Name: "Lara"},
		{ID: "de-DE-björn", Name: "Björn"},
		{ID: "de-DE-erna", Name: "Erna"},
	},
	"tamil": {
		{ID: "ta-IN-suresh", Name: "Suresh"},
		{ID: "ta-IN-iniya", Name: "Iniya"},
		{ID: "ta-IN-sarvesh", Name: "Sarvesh"},
		{ID: "ta-IN-abirami", Name: "Abirami"},
	},
}

// AvailableVoices returns the Murf voice catalog for a language.
func AvailableVoices(language string) ([]VoiceInfo, error) {
	v, ok := catalog[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", language)
	}
	return v, nil
}
