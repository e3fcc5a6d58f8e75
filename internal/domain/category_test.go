package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
)

func TestNormalizeRawCategory(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Sponsor", "sponsor"},
		{"  SPONSOR  ", "sponsor"},
		{"Self-Promotion", "self-promotion"},
		{"Contenuto Sponsorizzato", "contenuto-sponsorizzato"},
		{"Sigla  Iniziale", "sigla-iniziale"},
		{"café", "cafe"},
		{"shout_out!!", "shout-out"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRawCategory(tt.input))
		})
	}
}

func TestParseRawCategory_Table(t *testing.T) {
	tests := []struct {
		raw  string
		want Category
	}{
		{"sponsor", CategorySponsor},
		{"Sponsorships", CategorySponsor},
		{"sponsorizzazione", CategorySponsor},
		{"Contenuto Sponsorizzato", CategorySponsor},
		{"Paid Promotion", CategorySponsor},
		{"intro", CategoryIntro},
		{"Introduzione", CategoryIntro},
		{"sigla iniziale", CategoryIntro},
		{"outro", CategoryOutro},
		{"Sigla Finale", CategoryOutro},
		{"donation", CategoryDonation},
		{"Ringraziamenti", CategoryDonation},
		{"Acknowledgements", CategoryDonation},
		{"shout-out", CategoryDonation},
		{"self-promo", CategorySelfPromo},
		{"Autopromozione", CategorySelfPromo},
		{"MERCH", CategorySelfPromo},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRawCategory(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRawCategory_SubstringFallback(t *testing.T) {
	// Compound answers outside the table still resolve if a canonical
	// term appears inside them.
	got, err := ParseRawCategory("sponsor segment")
	require.NoError(t, err)
	assert.Equal(t, CategorySponsor, got)

	got, err = ParseRawCategory("intro music")
	require.NoError(t, err)
	assert.Equal(t, CategoryIntro, got)
}

func TestParseRawCategory_Unknown(t *testing.T) {
	tests := []string{"", "   ", "cooking", "contenuto", "interview"}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseRawCategory(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrClassifierParse))
		})
	}
}

func TestCategory_MatchesLabel(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		label    string
		want     bool
	}{
		{"exact", CategorySponsor, "sponsor", true},
		{"case insensitive", CategorySponsor, "Sponsor", true},
		{"legacy cached label", CategorySponsor, "sponsorships", true},
		{"merged label", CategorySponsor, "sponsor + intro", true},
		{"merged label other side", CategoryIntro, "sponsor + intro", true},
		{"no match", CategoryOutro, "sponsor + intro", false},
		{"acknowledgment spelling", CategoryDonation, "Acknowledgement", true},
		{"merch", CategorySelfPromo, "merch plug", true},
		{"unrelated", CategorySelfPromo, "donation", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.category.MatchesLabel(tt.label))
		})
	}
}

func TestParseCategory_Exact(t *testing.T) {
	got, err := ParseCategory(" Sponsor ")
	require.NoError(t, err)
	assert.Equal(t, CategorySponsor, got)

	_, err = ParseCategory("sponsorships")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestAllCategories_CoversTranslationTable(t *testing.T) {
	known := map[Category]bool{}
	for _, c := range AllCategories() {
		assert.True(t, c.Valid())
		known[c] = true
	}
	require.Len(t, known, 5)

	for raw, c := range rawCategoryTable {
		assert.True(t, known[c], "table entry %q maps to unknown category %q", raw, c)
		// Table keys must already be in normalized form.
		assert.Equal(t, raw, NormalizeRawCategory(raw), "table key %q is not normalized", raw)
	}
}

func TestCategoryColor(t *testing.T) {
	c1 := CategoryColor("sponsor")
	c2 := CategoryColor("sponsor")
	c3 := CategoryColor("intro")

	assert.Equal(t, c1, c2, "same label must hash to the same color")
	assert.NotEqual(t, c1, c3)
	assert.True(t, strings.HasPrefix(c1, "#"))
	assert.Len(t, c1, 7)
}
