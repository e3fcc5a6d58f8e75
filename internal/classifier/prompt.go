package classifier

import (
	"strings"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

// Prompt is a built classification prompt, split into the system instruction
// and the user message carrying the transcript.
type Prompt struct {
	System string
	User   string
}

// categoryGuidance tells the model what each category covers.
// Keys are the canonical slugs the response must use.
var categoryGuidance = map[domain.Category]string{
	domain.CategorySponsor:   "paid promotions for an external product or service, including discount codes and affiliate links",
	domain.CategoryIntro:     "opening sequences, title cards, or channel jingles before the actual content begins",
	domain.CategoryOutro:     "closing remarks, end screens, and subscribe reminders after the content has ended",
	domain.CategoryDonation:  "donation appeals, patron thank-yous, and acknowledgment read-outs",
	domain.CategorySelfPromo: "the creator promoting their own merchandise, courses, events, or other channels",
}

// BuildPrompt produces the classification prompt for a transcript. Only the
// enabled categories are described to the model; an empty list means all of
// them (fresh install, nothing toggled off).
func BuildPrompt(transcript domain.Transcript, categories []domain.Category) Prompt {
	if len(categories) == 0 {
		categories = domain.AllCategories()
	}

	var sb strings.Builder

	sb.WriteString("You analyze video transcripts and locate segments viewers may want to skip.\n\n")
	sb.WriteString("Detect ONLY these categories:\n")
	for _, c := range categories {
		sb.WriteString("- ")
		sb.WriteString(string(c))
		sb.WriteString(": ")
		sb.WriteString(categoryGuidance[c])
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(`The transcript lines are prefixed with [mm:ss] timestamps. Respond with a JSON object of this exact shape:
{
  "segments": [
    {"start": 90, "end": 135, "category": "sponsor", "confidence": 0.95, "description": "reads an ad for a VPN service"}
  ]
}

Rules:
- "start" and "end" are offsets in seconds from the beginning of the video, with end greater than start
- "category" must be one of the listed category names
- "confidence" is 0.0-1.0 based on how certain you are the whole range is skippable
- Do NOT flag brief incidental brand mentions inside genuine content; only sustained promotional passages count
- Do NOT flag content the creator discusses critically or editorially, even when products are named
- When no segment of the listed categories exists, return {"segments": []}
- Return ONLY the JSON, no other text`)

	return Prompt{
		System: sb.String(),
		User:   "Transcript:\n" + transcript.Text(),
	}
}
