package services

import (
	"regexp"
	"strings"
	"time"
)

// UtilityService provides text normalization and date handling helpers
// shared by the extractor, the aggregator and the presentation layers
type UtilityService struct{}

// NewUtilityService creates a new utility service
func NewUtilityService() *UtilityService {
	return &UtilityService{}
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// expiryDateLayouts covers the date formats the tracked sites have been
// observed to use for expiration columns
var expiryDateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
}

// neverExpiresMarkers are expiry strings meaning a code has no expiration
var neverExpiresMarkers = map[string]bool{
	"never":         true,
	"no expiration": true,
	"permanent":     true,
	"n/a":           true,
	"none":          true,
}

// NormalizeCode canonicalizes a scraped code string for deduplication:
// trimmed, uppercased, inner spaces removed
func (s *UtilityService) NormalizeCode(code string) string {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	return strings.ReplaceAll(normalized, " ", "")
}

// NormalizeWhitespace collapses runs of whitespace into single spaces
func (s *UtilityService) NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// StripHTMLTags removes markup from reward titles scraped out of script blocks
func (s *UtilityService) StripHTMLTags(text string) string {
	return s.NormalizeWhitespace(htmlTagPattern.ReplaceAllString(text, ""))
}

// ParseExpiryDate attempts to parse an expiry string in any known layout.
// Returns nil when the string carries no parseable date.
func (s *UtilityService) ParseExpiryDate(expires string) *time.Time {
	expires = strings.TrimSpace(expires)
	if expires == "" {
		return nil
	}

	for _, layout := range expiryDateLayouts {
		if parsed, err := time.Parse(layout, expires); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}

	return nil
}

// IsCodeExpired applies the expiry heuristics to a raw expires string:
// empty or "never"-style markers mean active, a parseable past date means
// expired, anything unparseable is assumed active
func (s *UtilityService) IsCodeExpired(expires *string, now time.Time) bool {
	if expires == nil || strings.TrimSpace(*expires) == "" {
		return false
	}

	if neverExpiresMarkers[strings.ToLower(strings.TrimSpace(*expires))] {
		return false
	}

	if parsed := s.ParseExpiryDate(*expires); parsed != nil {
		return parsed.Before(now)
	}

	return false
}
