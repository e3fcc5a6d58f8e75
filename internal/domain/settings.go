package domain

import "time"

// Default tuning values for fresh installs.
const (
	DefaultConfidenceThreshold = 0.85
	DefaultSkipBuffer          = 5.0
	DefaultMaxAgeDays          = 30
)

// UserSettings controls which segments get skipped and how.
// A single record exists per daemon; the extension reads and writes it
// through the settings endpoints.
type UserSettings struct {
	// Enabled toggles skipping per category. A nil map means
	// "everything on" (fresh install).
	Enabled map[Category]bool `json:"enabled"`

	// ConfidenceThreshold drops classifier candidates below it before
	// they ever become segments.
	ConfidenceThreshold float64 `json:"confidence_threshold" validate:"gte=0,lte=1"`

	// SkipBuffer is the seconds of forewarning before an automatic
	// skip, during which the user may cancel.
	SkipBuffer float64 `json:"skip_buffer" validate:"gte=0,lte=30"`

	// PreviewEnabled shows the cancellable countdown; off means skips
	// fire immediately.
	PreviewEnabled bool `json:"preview_enabled"`

	// AutoSkip enables automatic skipping; off leaves only timeline
	// markers and manual skips.
	AutoSkip bool `json:"auto_skip"`

	// Provider and Model select the classifier backend.
	Provider string `json:"provider" validate:"omitempty,oneof=anthropic openai mock"`
	Model    string `json:"model,omitempty"`

	// MaxAgeDays is the cache staleness horizon used by sweeps.
	MaxAgeDays int `json:"max_age_days" validate:"gte=1,lte=365"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserSettings creates settings with sensible defaults:
// all categories enabled, previews on, conservative threshold.
func NewUserSettings() *UserSettings {
	enabled := make(map[Category]bool, len(AllCategories()))
	for _, c := range AllCategories() {
		enabled[c] = true
	}
	return &UserSettings{
		Enabled:             enabled,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		SkipBuffer:          DefaultSkipBuffer,
		PreviewEnabled:      true,
		AutoSkip:            true,
		Provider:            "anthropic",
		MaxAgeDays:          DefaultMaxAgeDays,
		UpdatedAt:           time.Now(),
	}
}

// EnabledCategories returns the effective category toggles, expanding
// the nil-means-all default.
func (s *UserSettings) EnabledCategories() map[Category]bool {
	out := make(map[Category]bool, len(AllCategories()))
	for _, c := range AllCategories() {
		if s.Enabled == nil {
			out[c] = true
			continue
		}
		out[c] = s.Enabled[c]
	}
	return out
}

// EnabledList returns just the switched-on categories in stable order,
// the shape the prompt builder wants.
func (s *UserSettings) EnabledList() []Category {
	enabled := s.EnabledCategories()
	out := make([]Category, 0, len(enabled))
	for _, c := range AllCategories() {
		if enabled[c] {
			out = append(out, c)
		}
	}
	return out
}

// MaxAge converts the staleness horizon to a duration.
func (s *UserSettings) MaxAge() time.Duration {
	days := s.MaxAgeDays
	if days <= 0 {
		days = DefaultMaxAgeDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Clone returns a deep copy.
func (s *UserSettings) Clone() *UserSettings {
	out := *s
	if s.Enabled != nil {
		out.Enabled = make(map[Category]bool, len(s.Enabled))
		for k, v := range s.Enabled {
			out.Enabled[k] = v
		}
	}
	return &out
}
