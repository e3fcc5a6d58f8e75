package classifier

import (
	"encoding/json/v2"
	"strings"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
)

// candidate mirrors one entry in the model's segments array. Pointer fields
// distinguish "absent" from zero so required-field checks are exact.
type candidate struct {
	Start       *float64 `json:"start"`
	End         *float64 `json:"end"`
	Category    *string  `json:"category"`
	Confidence  *float64 `json:"confidence"`
	Description string   `json:"description"`
}

type completionPayload struct {
	Segments []candidate `json:"segments"`
}

// ParseResponse extracts and validates segment candidates from a model
// completion. Validation is fail-closed: one structurally invalid candidate
// rejects the whole response, since a garbled answer cannot be partially
// trusted. Raw category labels are translated to canonical categories here,
// at parse time, so nothing downstream ever sees free-text vocabulary.
func ParseResponse(raw string) ([]domain.Segment, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return nil, errors.ClassifierParse("empty classifier response")
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, errors.ClassifierParsef("response is not valid JSON: %v (response: %s)", err, truncate(cleaned, 200))
	}

	segments := make([]domain.Segment, 0, len(payload.Segments))
	for i, c := range payload.Segments {
		if c.Start == nil {
			return nil, errors.ClassifierParsef("candidate %d: missing start", i)
		}
		if c.End == nil {
			return nil, errors.ClassifierParsef("candidate %d: missing end", i)
		}
		if c.Category == nil || *c.Category == "" {
			return nil, errors.ClassifierParsef("candidate %d: missing category", i)
		}

		category, err := domain.ParseRawCategory(*c.Category)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeClassifierParse, "candidate %d: unknown category %q", i, *c.Category)
		}

		// Absent confidence means the model offered no hedge; treat as
		// fully confident rather than dropping the candidate.
		confidence := 1.0
		if c.Confidence != nil {
			confidence = *c.Confidence
		}

		segment, err := domain.NewSegment(*c.Start, *c.End, string(category), c.Description, confidence)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeClassifierParse, "candidate %d invalid", i)
		}
		segments = append(segments, segment)
	}

	return segments, nil
}

// FilterByConfidence drops candidates below the threshold. This runs before
// any merge so a low-confidence sliver can never widen a high-confidence
// neighbor's range.
func FilterByConfidence(segments []domain.Segment, threshold float64) []domain.Segment {
	kept := make([]domain.Segment, 0, len(segments))
	for _, s := range segments {
		if s.Confidence >= threshold {
			kept = append(kept, s)
		}
	}
	return kept
}

// stripCodeFences removes a markdown code-fence wrapper if the model added
// one despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
