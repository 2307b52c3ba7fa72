package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	utility := NewUtilityService()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already canonical", "ABCDE-12345-FGHIJ-67890-KLMNO", "ABCDE-12345-FGHIJ-67890-KLMNO"},
		{"lowercase", "abcde-12345-fghij-67890-klmno", "ABCDE-12345-FGHIJ-67890-KLMNO"},
		{"surrounding whitespace", "  ABCDE-12345-FGHIJ-67890-KLMNO\n", "ABCDE-12345-FGHIJ-67890-KLMNO"},
		{"inner spaces", "ABCDE - 12345 - FGHIJ - 67890 - KLMNO", "ABCDE-12345-FGHIJ-67890-KLMNO"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, utility.NormalizeCode(tt.input))
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	utility := NewUtilityService()

	assert.Equal(t, "Golden Key x5", utility.NormalizeWhitespace("  Golden\n\tKey   x5 "))
	assert.Equal(t, "", utility.NormalizeWhitespace("   \n\t  "))
}

func TestStripHTMLTags(t *testing.T) {
	utility := NewUtilityService()

	assert.Equal(t, "5 Golden Keys", utility.StripHTMLTags(`<span class="reward">5 Golden Keys</span>`))
	assert.Equal(t, "Weapon Skin", utility.StripHTMLTags("Weapon <br/> Skin"))
	assert.Equal(t, "plain text", utility.StripHTMLTags("plain text"))
}

func TestParseExpiryDate(t *testing.T) {
	utility := NewUtilityService()

	tests := []struct {
		name     string
		input    string
		expected *time.Time
	}{
		{"short month", "Sep 30, 2025", timePtr(2025, time.September, 30, 0, 0, 0)},
		{"long month", "September 30, 2025", timePtr(2025, time.September, 30, 0, 0, 0)},
		{"iso date", "2025-09-30", timePtr(2025, time.September, 30, 0, 0, 0)},
		{"iso datetime", "2025-09-30 23:59:00", timePtr(2025, time.September, 30, 23, 59, 0)},
		{"garbage", "when the event ends", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := utility.ParseExpiryDate(tt.input)
			if tt.expected == nil {
				assert.Nil(t, parsed)
				return
			}
			if assert.NotNil(t, parsed) {
				assert.True(t, parsed.Equal(*tt.expected), "got %v, want %v", parsed, tt.expected)
			}
		})
	}
}

func TestIsCodeExpired(t *testing.T) {
	utility := NewUtilityService()
	now := time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)

	past := "Sep 30, 2025"
	future := "Oct 15, 2025"
	never := "Never"
	garbage := "unknown"
	empty := ""

	tests := []struct {
		name    string
		expires *string
		expired bool
	}{
		{"nil expiry is active", nil, false},
		{"empty expiry is active", &empty, false},
		{"never marker is active", &never, false},
		{"past date is expired", &past, true},
		{"future date is active", &future, false},
		{"unparseable is assumed active", &garbage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, utility.IsCodeExpired(tt.expires, now))
		})
	}
}

func timePtr(year int, month time.Month, day, hour, minute, second int) *time.Time {
	value := time.Date(year, month, day, hour, minute, second, 0, time.UTC)
	return &value
}
