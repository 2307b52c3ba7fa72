package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shiftwatch/shift-backend/models"
	"github.com/sirupsen/logrus"
)

const (
	// SourceMentalMars identifies codes scraped from the MentalMars news page
	SourceMentalMars = "MentalMars"
	// SourceTracker identifies codes scraped from the xsmashx88x community tracker
	SourceTracker = "xsmashx88x Tracker"
)

var (
	// shiftCodeExactPattern matches a cell holding exactly one SHiFT code
	shiftCodeExactPattern = regexp.MustCompile(`^[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}$`)
	// shiftCodeEmbeddedPattern matches SHiFT codes embedded in surrounding text
	shiftCodeEmbeddedPattern = regexp.MustCompile(`\b[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}\b`)

	// trackerCodeBlockPattern matches one code object inside the tracker's
	// ALL_CODES_CONFIG javascript array
	trackerCodeBlockPattern = regexp.MustCompile(`\{[^}]*?code:\s*"([A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5})"[^}]*?\}`)
	// trackerCreateDatePattern matches createDate(year, month, day, hour, minute, second, isPM)
	trackerCreateDatePattern = regexp.MustCompile(`expires:\s*createDate\((\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)\)`)
	trackerExpiresPattern    = regexp.MustCompile(`expires:\s*["']([^"']+)["']`)
	trackerTitlePattern      = regexp.MustCompile(`title:\s*["']([^"']+)["']`)
)

// placeholderCodes are entries the sources publish before a real code exists
var placeholderCodes = map[string]bool{
	"XXXXX-XXXXX-XXXXX-XXXXX-XXXXX": true,
	"3ZXJB-53STT-56T3W-B3TT3-HTS95": true,
}

// trackerLocation is the timezone the tracker's createDate() values are
// published in. Falls back to a fixed offset when tzdata is unavailable.
var trackerLocation = loadTrackerLocation()

func loadTrackerLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		logrus.WithError(err).Warn("Failed to load America/New_York timezone, using fixed EST offset")
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// HTMLCodeExtractor extracts SHiFT code records from raw source HTML.
// Every extraction method is total: malformed or empty markup yields an
// empty result, never an error.
type HTMLCodeExtractor struct {
	utility *UtilityService
}

// NewHTMLCodeExtractor creates a new code extraction service
func NewHTMLCodeExtractor(utility *UtilityService) *HTMLCodeExtractor {
	return &HTMLCodeExtractor{utility: utility}
}

// ExtractFromMentalMars parses the MentalMars code tables. The page keeps a
// table per game with columns Reward | Expire Date | SHiFT Code, though the
// column order has shifted over time, so the code cell is located by shape
// and the expire column by header text.
func (extractor *HTMLCodeExtractor) ExtractFromMentalMars(html string) []models.ShiftCode {
	var codes []models.ShiftCode

	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logrus.WithError(err).Warn("Failed to build document from MentalMars HTML")
		return codes
	}

	document.Find("table").Each(func(_ int, table *goquery.Selection) {
		expireColumnIndex := -1
		table.Find("tr").First().Find("th, td").Each(func(index int, header *goquery.Selection) {
			if strings.Contains(strings.ToLower(header.Text()), "expire") {
				expireColumnIndex = index
			}
		})

		table.Find("tr").Each(func(rowIndex int, row *goquery.Selection) {
			if rowIndex == 0 {
				return
			}

			cells := row.Find("td, th")
			if cells.Length() < 3 {
				return
			}

			codeText := ""
			codeColumnIndex := -1
			cells.EachWithBreak(func(index int, cell *goquery.Selection) bool {
				text := extractor.utility.NormalizeCode(cell.Text())
				if shiftCodeExactPattern.MatchString(text) {
					codeText = text
					codeColumnIndex = index
					return false
				}
				return true
			})

			if codeText == "" {
				return
			}

			// The reward is whichever cell holds neither the code nor the
			// expire date; column order varies between the page's tables
			reward := ""
			cells.EachWithBreak(func(index int, cell *goquery.Selection) bool {
				if index == codeColumnIndex || index == expireColumnIndex {
					return true
				}
				reward = extractor.utility.NormalizeWhitespace(cell.Text())
				return false
			})

			var expires *string
			if expireColumnIndex >= 0 && expireColumnIndex < cells.Length() {
				expireText := extractor.utility.NormalizeWhitespace(cells.Eq(expireColumnIndex).Text())
				if expireText != "" && expireText != "…" {
					expires = &expireText
				}
			}

			codes = append(codes, models.NewShiftCode(codeText, reward, expires, SourceMentalMars))
		})
	})

	logrus.WithFields(logrus.Fields{
		"component": "HTMLCodeExtractor",
		"source":    SourceMentalMars,
		"codes":     len(codes),
	}).Info("Extracted codes from MentalMars tables")

	return codes
}

// ExtractFromTracker parses the xsmashx88x tracker page. The tracker renders
// its code list from an ALL_CODES_CONFIG javascript array, so the codes are
// pulled out of script blocks rather than rendered markup. When the config
// array is absent a bare pattern scan over the scripts is used as fallback.
func (extractor *HTMLCodeExtractor) ExtractFromTracker(html string) []models.ShiftCode {
	var codes []models.ShiftCode
	seen := make(map[string]bool)

	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logrus.WithError(err).Warn("Failed to build document from tracker HTML")
		return codes
	}

	document.Find("script").Each(func(_ int, script *goquery.Selection) {
		scriptText := script.Text()
		if !strings.Contains(scriptText, "ALL_CODES_CONFIG") {
			return
		}

		for _, blockMatch := range trackerCodeBlockPattern.FindAllStringSubmatch(scriptText, -1) {
			fullBlock := blockMatch[0]
			codeText := blockMatch[1]

			if placeholderCodes[codeText] || seen[codeText] {
				continue
			}
			seen[codeText] = true

			codes = append(codes, models.NewShiftCode(
				codeText,
				extractor.extractTrackerReward(fullBlock),
				extractor.extractTrackerExpiry(fullBlock),
				SourceTracker,
			))
		}
	})

	// Fallback for layouts without the config array
	if len(codes) == 0 {
		logrus.Warn("Tracker ALL_CODES_CONFIG not found, falling back to pattern scan")
		document.Find("script").Each(func(_ int, script *goquery.Selection) {
			for _, codeText := range shiftCodeEmbeddedPattern.FindAllString(script.Text(), -1) {
				if placeholderCodes[codeText] || seen[codeText] {
					continue
				}
				seen[codeText] = true
				codes = append(codes, models.NewShiftCode(codeText, "Golden Key", nil, SourceTracker))
			}
		})
	}

	logrus.WithFields(logrus.Fields{
		"component": "HTMLCodeExtractor",
		"source":    SourceTracker,
		"codes":     len(codes),
	}).Info("Extracted codes from tracker scripts")

	return codes
}

// extractTrackerReward pulls the reward title out of a tracker code block,
// stripping any embedded markup
func (extractor *HTMLCodeExtractor) extractTrackerReward(block string) string {
	if titleMatch := trackerTitlePattern.FindStringSubmatch(block); titleMatch != nil {
		if reward := extractor.utility.StripHTMLTags(titleMatch[1]); reward != "" {
			return reward
		}
	}
	return "Golden Key"
}

// extractTrackerExpiry resolves the expires property of a tracker code block.
// createDate() calls carry 12-hour clock components in the tracker's local
// timezone; string dates pass through; "UED" means unknown.
func (extractor *HTMLCodeExtractor) extractTrackerExpiry(block string) *string {
	if dateMatch := trackerCreateDatePattern.FindStringSubmatch(block); dateMatch != nil {
		year := atoiSafe(dateMatch[1])
		month := atoiSafe(dateMatch[2])
		day := atoiSafe(dateMatch[3])
		hour := atoiSafe(dateMatch[4])
		minute := atoiSafe(dateMatch[5])
		second := atoiSafe(dateMatch[6])
		isPM := atoiSafe(dateMatch[7]) != 0

		if isPM && hour < 12 {
			hour += 12
		} else if !isPM && hour == 12 {
			hour = 0
		}

		expiry := time.Date(year, time.Month(month), day, hour, minute, second, 0, trackerLocation)
		formatted := expiry.UTC().Format("2006-01-02 15:04:05")
		return &formatted
	}

	if expiresMatch := trackerExpiresPattern.FindStringSubmatch(block); expiresMatch != nil {
		expiresRaw := strings.TrimSpace(expiresMatch[1])
		// "UED" marks an unknown expiration date on the tracker
		if expiresRaw == "" || strings.Contains(expiresRaw, "UED") {
			return nil
		}
		return &expiresRaw
	}

	return nil
}

// ExtractFromText scans arbitrary text for embedded SHiFT codes. Used as the
// last-resort extraction path and directly testable against raw snippets.
func (extractor *HTMLCodeExtractor) ExtractFromText(text, source string) []models.ShiftCode {
	var codes []models.ShiftCode
	seen := make(map[string]bool)

	for _, codeText := range shiftCodeEmbeddedPattern.FindAllString(text, -1) {
		if placeholderCodes[codeText] || seen[codeText] {
			continue
		}
		seen[codeText] = true
		codes = append(codes, models.NewShiftCode(codeText, "Golden Key", nil, source))
	}

	return codes
}

func atoiSafe(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
