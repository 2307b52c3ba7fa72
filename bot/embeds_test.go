package bot

import (
	"strings"
	"testing"

	"github.com/shiftwatch/shift-backend/models"
	"github.com/shiftwatch/shift-backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatExpiry(t *testing.T) {
	parseable := "Sep 30, 2025"
	unparseable := "during the event"
	empty := "  "

	assert.Equal(t, "Unknown", formatExpiry(nil))
	assert.Equal(t, "Unknown", formatExpiry(&empty))
	assert.Equal(t, "during the event", formatExpiry(&unparseable))

	rendered := formatExpiry(&parseable)
	assert.True(t, strings.HasPrefix(rendered, "<t:"), "parseable dates become Discord timestamps, got %s", rendered)
	assert.True(t, strings.HasSuffix(rendered, ":R>"))
}

func TestBuildCodeListEmbedsChunksCodes(t *testing.T) {
	var codes []models.ShiftCode
	for i := 0; i < 25; i++ {
		codes = append(codes, models.NewShiftCode(
			"AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", "Golden Key", nil, services.SourceMentalMars))
	}

	embeds := buildCodeListEmbeds(codes, "")
	require.Len(t, embeds, 3)

	totalFields := 0
	for _, embed := range embeds {
		assert.LessOrEqual(t, len(embed.Fields), codesPerEmbed)
		totalFields += len(embed.Fields)
	}
	assert.Equal(t, 25, totalFields)

	assert.NotEmpty(t, embeds[0].Title)
	require.NotNil(t, embeds[2].Footer)
	assert.Contains(t, embeds[2].Footer.Text, "25 of 25")
}

func TestBuildSingleCodeEmbed(t *testing.T) {
	expires := "Sep 30, 2025"
	code := models.NewShiftCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", "5 Golden Keys", &expires, services.SourceTracker)

	embed := buildSingleCodeEmbed(&code, "Latest SHiFT Code")
	assert.Equal(t, "Latest SHiFT Code", embed.Title)
	assert.Contains(t, embed.Description, code.Code)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "5 Golden Keys", embed.Fields[0].Value)
}

func TestBuildStatsEmbedWithoutData(t *testing.T) {
	embed := buildStatsEmbed(nil, nil, nil, 0)
	assert.Empty(t, embed.Fields)
	assert.NotEmpty(t, embed.Description)
}
