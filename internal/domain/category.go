package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
)

// Category is the fixed vocabulary of skippable content kinds.
// The classifier's free-text labels are translated into this enum at
// parse time; downstream code never branches on raw model vocabulary.
type Category string

const (
	CategorySponsor   Category = "sponsor"
	CategoryIntro     Category = "intro"
	CategoryOutro     Category = "outro"
	CategoryDonation  Category = "donation"
	CategorySelfPromo Category = "selfpromo"
)

// AllCategories returns the five categories in stable display order.
func AllCategories() []Category {
	return []Category{
		CategorySponsor,
		CategoryIntro,
		CategoryOutro,
		CategoryDonation,
		CategorySelfPromo,
	}
}

// DisplayName returns the human-readable label for UI surfaces.
func (c Category) DisplayName() string {
	switch c {
	case CategorySponsor:
		return "Sponsor"
	case CategoryIntro:
		return "Intro"
	case CategoryOutro:
		return "Outro"
	case CategoryDonation:
		return "Donation/Acknowledgment"
	case CategorySelfPromo:
		return "Self-promo/Merch"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the five known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySponsor, CategoryIntro, CategoryOutro, CategoryDonation, CategorySelfPromo:
		return true
	}
	return false
}

// matchTerms are the case-insensitive substrings used to match an
// already-built segment label (including merged "a + b" labels and
// legacy labels loaded from older cache entries) against a category.
func (c Category) matchTerms() []string {
	switch c {
	case CategorySponsor:
		return []string{"sponsor"}
	case CategoryIntro:
		return []string{"intro"}
	case CategoryOutro:
		return []string{"outro"}
	case CategoryDonation:
		return []string{"donation", "acknowledg", "ringrazia"}
	case CategorySelfPromo:
		return []string{"selfpromo", "promo", "merch"}
	default:
		return nil
	}
}

// MatchesLabel reports whether a segment's category label belongs to
// this category, using loose substring matching.
func (c Category) MatchesLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, term := range c.matchTerms() {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// ParseCategory parses an exact canonical category name, as used in
// settings payloads. Unknown names are a validation error.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", errors.Validationf("unknown category %q", s)
	}
	return c, nil
}

// rawCategoryTable maps the classifier's observed vocabulary, in
// normalized slug form, to the canonical enum. The upstream model
// answers in English or Italian depending on the transcript language,
// so both vocabularies are covered.
var rawCategoryTable = map[string]Category{
	// sponsor
	"sponsor":                 CategorySponsor,
	"sponsors":                CategorySponsor,
	"sponsorship":             CategorySponsor,
	"sponsorships":            CategorySponsor,
	"sponsored":               CategorySponsor,
	"sponsored-content":       CategorySponsor,
	"sponsorizzazione":        CategorySponsor,
	"sponsorizzazioni":        CategorySponsor,
	"contenuto-sponsorizzato": CategorySponsor,
	"ad":                      CategorySponsor,
	"ads":                     CategorySponsor,
	"advertisement":           CategorySponsor,
	"paid-promotion":          CategorySponsor,

	// intro
	"intro":          CategoryIntro,
	"intros":         CategoryIntro,
	"introduction":   CategoryIntro,
	"introduzione":   CategoryIntro,
	"opening":        CategoryIntro,
	"sigla":          CategoryIntro,
	"sigla-iniziale": CategoryIntro,

	// outro
	"outro":        CategoryOutro,
	"outros":       CategoryOutro,
	"ending":       CategoryOutro,
	"closing":      CategoryOutro,
	"conclusione":  CategoryOutro,
	"sigla-finale": CategoryOutro,

	// donation
	"donation":         CategoryDonation,
	"donations":        CategoryDonation,
	"donazione":        CategoryDonation,
	"donazioni":        CategoryDonation,
	"acknowledgment":   CategoryDonation,
	"acknowledgement":  CategoryDonation,
	"acknowledgments":  CategoryDonation,
	"acknowledgements": CategoryDonation,
	"ringraziamenti":   CategoryDonation,
	"ringraziamento":   CategoryDonation,
	"shoutout":         CategoryDonation,
	"shout-out":        CategoryDonation,
	"patreon":          CategoryDonation,

	// selfpromo
	"selfpromo":         CategorySelfPromo,
	"self-promo":        CategorySelfPromo,
	"self-promotion":    CategorySelfPromo,
	"autopromo":         CategorySelfPromo,
	"autopromozione":    CategorySelfPromo,
	"promo":             CategorySelfPromo,
	"promotion":         CategorySelfPromo,
	"merch":             CategorySelfPromo,
	"merchandise":       CategorySelfPromo,
	"merchandising":     CategorySelfPromo,
	"channel-promo":     CategorySelfPromo,
	"unpaid-self-promo": CategorySelfPromo,
}

var (
	// Matches any non-alphanumeric run.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// NormalizeRawCategory reduces a classifier label to slug form before
// table lookup: unicode decomposition, ASCII fold, lowercase, and
// hyphenation of separator runs.
// "Contenuto Sponsorizzato" -> "contenuto-sponsorizzato".
// "Self-Promotion" -> "self-promotion".
func NormalizeRawCategory(s string) string {
	// Normalize unicode (decompose accented characters).
	s = norm.NFKD.String(s)

	// Remove non-ASCII characters.
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	// Lowercase.
	s = strings.ToLower(s)

	// Replace non-alphanumeric with hyphens.
	s = nonAlphanumeric.ReplaceAllString(s, "-")

	// Collapse multiple hyphens.
	s = multipleHyphens.ReplaceAllString(s, "-")

	// Trim leading/trailing hyphens.
	s = strings.Trim(s, "-")

	return s
}

// ParseRawCategory translates a raw classifier label into the enum.
// Exact table lookup first; labels outside the table fall back to
// substring matching against the canonical names so compound answers
// like "sponsor segment" still resolve. A label that matches nothing
// fails - raw vocabulary never leaks past the parser.
func ParseRawCategory(raw string) (Category, error) {
	slug := NormalizeRawCategory(raw)
	if slug == "" {
		return "", errors.ClassifierParse("empty category in classifier response")
	}
	if c, ok := rawCategoryTable[slug]; ok {
		return c, nil
	}
	for _, c := range AllCategories() {
		if c.MatchesLabel(slug) {
			return c, nil
		}
	}
	return "", errors.ClassifierParsef("unrecognized category %q in classifier response", raw)
}

// Color returns a stable hex color for a category label, used by the
// extension for timeline markers. The same label always hashes to the
// same hue; merged labels get their own color.
func CategoryColor(label string) string {
	h := 0
	for _, c := range label {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	hue := float64(h % 360)

	// S=0.4, L=0.65 keeps markers readable on both dark and light players.
	r, g, b := hslToRGB(hue, 0.4, 0.65)

	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts HSL color space to RGB.
// h: hue (0-360), s: saturation (0-1), l: lightness (0-1)
// Returns RGB values (0-255).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	var r1, g1, b1 float64

	if s == 0 {
		// Achromatic (gray)
		r1, g1, b1 = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q

		r1 = hueToRGB(p, q, h+1.0/3.0)
		g1 = hueToRGB(p, q, h)
		b1 = hueToRGB(p, q, h-1.0/3.0)
	}

	r = uint8(r1 * 255)
	g = uint8(g1 * 255)
	b = uint8(b1 * 255)
	return
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
