package script

// Theme is a show style used when writing a script from an idea.
type Theme struct {
	Name   string
	Label  string
	System string // voice of the writer
	Style  string // style guidelines for the dialogue
}

var themes = []Theme{
	{
		Name:   "casual",
		Label:  "Casual Conversation",
		System: "You are a friendly, conversational podcast writer. Make the content feel like a chat between friends.",
		Style:  "conversational, approachable, use 'we' and 'you', add casual transitions",
	},
	{
		Name:   "professional",
		Label:  "Professional Briefing",
		System: "You are a professional writer for business podcasts. Maintain a formal, authoritative tone.",
		Style:  "formal, structured, authoritative, use industry terminology appropriately",
	},
	{
		Name:   "educational",
		Label:  "Educational Explainer",
		System: "You are an educational podcast writer. Focus on clarity, learning objectives, and step-by-step explanations.",
		Style:  "clear, informative, structured with learning points, use examples and analogies",
	},
	{
		Name:   "entertaining",
		Label:  "Entertainment",
		System: "You are an entertainment-focused podcast writer. Make the content engaging, fun, and memorable.",
		Style:  "engaging, humorous where appropriate, use storytelling elements, add hooks",
	},
	{
		Name:   "storytelling",
		Label:  "Narrative Storytelling",
		System: "You are a narrative podcast writer. Structure content with compelling story arcs and dramatic elements.",
		Style:  "narrative-driven, use story structure, create tension and resolution, vivid descriptions",
	},
	{
		Name:   "interview",
		Label:  "Interview",
		System: "You are an interview-style podcast writer. Structure content as engaging questions and detailed answers.",
		Style:  "question-answer format, natural conversation flow, follow-up questions",
	},
	{
		Name:   "news",
		Label:  "News Briefing",
		System: "You are a journalistic podcast writer. Focus on facts, objectivity, and timely information.",
		Style:  "factual, objective, structured like news reports, include relevant context",
	},
	{
		Name:   "motivational",
		Label:  "Motivational",
		System: "You are a motivational podcast writer. Inspire and energize the audience with uplifting content.",
		Style:  "inspiring, energetic, use action-oriented language, include calls to action",
	},
}

// ThemeNames returns all valid theme values.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// LookupTheme returns the theme with the given name.
func LookupTheme(name string) (Theme, bool) {
	for _, t := range themes {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}
