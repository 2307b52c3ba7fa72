package services

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mentalMarsFixture = `
<html><body>
<h2>Borderlands 4 SHiFT Codes</h2>
<table>
  <tr><th>Reward</th><th>Expire Date</th><th>SHiFT Code</th></tr>
  <tr><td>5 Golden Keys</td><td>Sep 30, 2025</td><td>ABCDE-12345-FGHIJ-67890-KLMNO</td></tr>
  <tr><td>Weapon Skin</td><td>…</td><td>ZYXWV-98765-UTSRQ-43210-PONML</td></tr>
  <tr><td>broken row</td><td>no code here</td><td>not a code</td></tr>
</table>
<table>
  <tr><th>SHiFT Code</th><th>Reward</th><th>Expires</th></tr>
  <tr><td>AAAAA-BBBBB-CCCCC-DDDDD-EEEEE</td><td>1 Golden Key</td><td>Never</td></tr>
</table>
</body></html>`

const trackerFixture = `
<html><body>
<script>
const ALL_CODES_CONFIG = [
  {
    code: "11111-22222-33333-44444-55555",
    title: "<span>10 Golden Keys</span>",
    expires: createDate(2025, 9, 30, 2, 0, 0, 1)
  },
  {
    code: "66666-77777-88888-99999-00000",
    title: "Cosmetic Pack",
    expires: "UED"
  },
  {
    code: "XXXXX-XXXXX-XXXXX-XXXXX-XXXXX",
    title: "Placeholder",
    expires: "UED"
  },
  {
    code: "11111-22222-33333-44444-55555",
    title: "Duplicate entry",
    expires: "UED"
  }
];
</script>
</body></html>`

func TestExtractFromMentalMars(t *testing.T) {
	extractor := NewHTMLCodeExtractor(NewUtilityService())

	codes := extractor.ExtractFromMentalMars(mentalMarsFixture)
	require.Len(t, codes, 3)

	first := codes[0]
	assert.Equal(t, "ABCDE-12345-FGHIJ-67890-KLMNO", first.Code)
	assert.Equal(t, "5 Golden Keys", first.Reward)
	require.NotNil(t, first.Expires)
	assert.Equal(t, "Sep 30, 2025", *first.Expires)
	assert.Equal(t, SourceMentalMars, first.Source)

	// Ellipsis placeholder in the expire column means no known expiry
	assert.Nil(t, codes[1].Expires)

	// Second table has the code column first; located by shape, not position
	third := codes[2]
	assert.Equal(t, "AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", third.Code)
	assert.Equal(t, "1 Golden Key", third.Reward)
}

func TestExtractFromMentalMarsMalformedHTML(t *testing.T) {
	extractor := NewHTMLCodeExtractor(NewUtilityService())

	assert.Empty(t, extractor.ExtractFromMentalMars(""))
	assert.Empty(t, extractor.ExtractFromMentalMars("<table><tr><td>junk"))
	assert.Empty(t, extractor.ExtractFromMentalMars("not html at all"))
}

func TestExtractFromTracker(t *testing.T) {
	extractor := NewHTMLCodeExtractor(NewUtilityService())

	codes := extractor.ExtractFromTracker(trackerFixture)
	require.Len(t, codes, 2, "placeholder and duplicate entries must be skipped")

	first := codes[0]
	assert.Equal(t, "11111-22222-33333-44444-55555", first.Code)
	assert.Equal(t, "10 Golden Keys", first.Reward, "markup must be stripped from the title")
	require.NotNil(t, first.Expires)
	// createDate(2025, 9, 30, 2, 0, 0, 1) is 2 PM local, early enough in the
	// day that the UTC date does not roll over
	assert.True(t, strings.HasPrefix(*first.Expires, "2025-09-30"), "got %s", *first.Expires)

	second := codes[1]
	assert.Equal(t, "66666-77777-88888-99999-00000", second.Code)
	assert.Equal(t, "Cosmetic Pack", second.Reward)
	assert.Nil(t, second.Expires, "UED means unknown expiry")
}

func TestExtractFromTrackerFallbackScan(t *testing.T) {
	extractor := NewHTMLCodeExtractor(NewUtilityService())

	// No ALL_CODES_CONFIG anywhere; bare codes in scripts are still found
	html := `<html><body>
		<script>var data = "code QQQQQ-WWWWW-EEEEE-RRRRR-TTTTT ships tomorrow";</script>
	</body></html>`

	codes := extractor.ExtractFromTracker(html)
	require.Len(t, codes, 1)
	assert.Equal(t, "QQQQQ-WWWWW-EEEEE-RRRRR-TTTTT", codes[0].Code)
	assert.Equal(t, "Golden Key", codes[0].Reward)
}

func TestExtractFromText(t *testing.T) {
	extractor := NewHTMLCodeExtractor(NewUtilityService())

	codes := extractor.ExtractFromText("Code: ABCD1-EFGH2-IJKL3-MNOP4-QRST5 expires soon", "test")
	require.Len(t, codes, 1)
	assert.Equal(t, "ABCD1-EFGH2-IJKL3-MNOP4-QRST5", codes[0].Code)
	assert.Equal(t, "test", codes[0].Source)

	assert.Empty(t, extractor.ExtractFromText("no codes in here", "test"))
	assert.Empty(t, extractor.ExtractFromText("lowercase abcd1-efgh2-ijkl3-mnop4-qrst5", "test"))
}

func TestExtractionProperties(t *testing.T) {
	extractor := NewHTMLCodeExtractor(NewUtilityService())
	properties := gopter.NewProperties(nil)

	properties.Property("extraction never panics and every result matches the code shape", prop.ForAll(
		func(input string) bool {
			for _, code := range extractor.ExtractFromText(input, "property") {
				if !shiftCodeExactPattern.MatchString(code.Code) {
					return false
				}
			}
			for _, code := range extractor.ExtractFromMentalMars(input) {
				if !shiftCodeExactPattern.MatchString(code.Code) {
					return false
				}
			}
			for _, code := range extractor.ExtractFromTracker(input) {
				if !shiftCodeExactPattern.MatchString(code.Code) {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("a code surrounded by arbitrary text is always found", prop.ForAll(
		func(prefix, suffix string) bool {
			const embedded = "ABCD1-EFGH2-IJKL3-MNOP4-QRST5"
			// Guard against the random text accidentally extending the code
			text := prefix + " " + embedded + " " + suffix
			for _, code := range extractor.ExtractFromText(text, "property") {
				if code.Code == embedded {
					return true
				}
			}
			return false
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
