package script

import (
	"fmt"
	"strings"
)

// MaxCharacters is the largest cast a generated script may use.
const MaxCharacters = 3

func buildSystemPrompt(theme Theme) string {
	return theme.System + `

OUTPUT FORMAT:
Return ONLY valid JSON matching this exact structure (no markdown fences, no extra text):
{
  "title": "engaging podcast title",
  "description": "compelling 2-3 sentence description",
  "content": "the complete script, one line per turn, each line formatted as Name: text"
}`
}

func buildUserPrompt(opts GenerateOptions, theme Theme) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a complete podcast episode from the following idea, tailored to the %s theme.\n", theme.Name)
	fmt.Fprintf(&b, "Style guidelines: %s\n\n", theme.Style)
	fmt.Fprintf(&b, "Podcast idea: %q\n\n", opts.Idea)
	if opts.Reference != "" {
		fmt.Fprintf(&b, "Base the discussion on this source material:\n<source>\n%s\n</source>\n\n", opts.Reference)
	}
	fmt.Fprintf(&b, "Characters: %s\n\n", strings.Join(opts.Names, ", "))
	b.WriteString("Write the whole episode as a conversation between only those characters, one turn per line:\n")
	for _, n := range opts.Names {
		fmt.Fprintf(&b, "%s: ...\n", n)
	}
	b.WriteString(`
Requirements:
1. Include an engaging title that captures the essence of the idea.
2. Write a compelling description (2-3 sentences) that would attract listeners.
3. The script must be substantial (at least 500-800 words) and written entirely as dialogue.
4. Only write spoken lines. No stage directions such as (laughing).
5. Every line must start with one of the character names followed by a colon.`)
	return b.String()
}
