package domain

import (
	"fmt"
	"strings"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
)

// TranscriptLine is one caption line with its playback timestamp.
type TranscriptLine struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// Transcript is the ordered caption sequence for one video, as
// delivered by the extension's page extractor.
type Transcript []TranscriptLine

// Validate checks the transcript is usable for classification.
// An empty transcript is rejected up front so no classifier call is
// ever paid for a video without captions.
func (t Transcript) Validate() error {
	if len(t) == 0 {
		return errors.Validation("no transcript available")
	}
	prev := -1.0
	for i, line := range t {
		if line.Time < 0 {
			return errors.Validationf("transcript line %d has negative time %v", i, line.Time)
		}
		if line.Time < prev {
			return errors.Validationf("transcript line %d is out of order (%v after %v)", i, line.Time, prev)
		}
		prev = line.Time
	}
	return nil
}

// Text flattens the transcript into the prompt body, one line per
// caption with a [mm:ss] prefix so the model can anchor its answers
// to playback time.
func (t Transcript) Text() string {
	var b strings.Builder
	for _, line := range t {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		b.WriteString(formatTimestamp(line.Time))
		b.WriteByte(' ')
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Len returns the character length of the flattened transcript,
// recorded as TranscriptLength in analysis metadata.
func (t Transcript) Len() int {
	return len(t.Text())
}

// Duration returns the timestamp of the last line, a lower bound on
// the video length.
func (t Transcript) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].Time
}

// formatTimestamp renders seconds as [mm:ss], with hours when needed.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("[%d:%02d:%02d]", h, m, s)
	}
	return fmt.Sprintf("[%d:%02d]", m, s)
}
