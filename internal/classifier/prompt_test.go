package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

func testTranscript() domain.Transcript {
	return domain.Transcript{
		{Time: 0, Text: "welcome back to the channel"},
		{Time: 63, Text: "this video is sponsored by NordVPN"},
		{Time: 95, Text: "back to the tutorial"},
	}
}

func TestBuildPrompt_EnabledCategoriesOnly(t *testing.T) {
	prompt := BuildPrompt(testTranscript(), []domain.Category{domain.CategorySponsor, domain.CategoryOutro})

	assert.Contains(t, prompt.System, "- sponsor:")
	assert.Contains(t, prompt.System, "- outro:")
	assert.NotContains(t, prompt.System, "- intro:")
	assert.NotContains(t, prompt.System, "- donation:")
	assert.NotContains(t, prompt.System, "- selfpromo:")
}

func TestBuildPrompt_EmptyMeansAllCategories(t *testing.T) {
	prompt := BuildPrompt(testTranscript(), nil)

	for _, c := range domain.AllCategories() {
		assert.Contains(t, prompt.System, "- "+string(c)+":")
	}
}

func TestBuildPrompt_FixesOutputContract(t *testing.T) {
	prompt := BuildPrompt(testTranscript(), nil)

	assert.Contains(t, prompt.System, `"segments"`)
	assert.Contains(t, prompt.System, "Return ONLY the JSON")
	assert.Contains(t, prompt.System, "incidental brand mentions")
}

func TestBuildPrompt_UserMessageCarriesTimestampedTranscript(t *testing.T) {
	prompt := BuildPrompt(testTranscript(), nil)

	assert.True(t, strings.HasPrefix(prompt.User, "Transcript:\n"))
	assert.Contains(t, prompt.User, "[0:00] welcome back to the channel")
	assert.Contains(t, prompt.User, "[1:03] this video is sponsored by NordVPN")
}
