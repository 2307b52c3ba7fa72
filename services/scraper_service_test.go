package services

import (
	"testing"

	"github.com/shiftwatch/shift-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAndDedupe(t *testing.T) {
	scraper := NewShiftCodeScraperService(nil)

	mentalMars := []models.ShiftCode{
		models.NewShiftCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", "5 Golden Keys", nil, SourceMentalMars),
		models.NewShiftCode("11111-22222-33333-44444-55555", "Weapon Skin", nil, SourceMentalMars),
	}
	tracker := []models.ShiftCode{
		models.NewShiftCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", "Golden Key", nil, SourceTracker),
		models.NewShiftCode("99999-88888-77777-66666-55555", "Golden Key", nil, SourceTracker),
	}

	merged := scraper.mergeAndDedupe([][]models.ShiftCode{mentalMars, tracker})
	require.Len(t, merged, 3, "a code published by both sources appears once")

	assert.Equal(t, SourceMentalMars, merged[0].Source, "first occurrence wins")
	assert.Equal(t, "5 Golden Keys", merged[0].Reward)
	assert.Equal(t, "99999-88888-77777-66666-55555", merged[2].Code)
}

func TestMergeAndDedupeNormalizes(t *testing.T) {
	scraper := NewShiftCodeScraperService(nil)

	results := [][]models.ShiftCode{
		{models.NewShiftCode("aaaaa-bbbbb-ccccc-ddddd-eeeee", "", nil, SourceMentalMars)},
		{models.NewShiftCode(" AAAAA-BBBBB-CCCCC-DDDDD-EEEEE ", "", nil, SourceTracker)},
	}

	merged := scraper.mergeAndDedupe(results)
	require.Len(t, merged, 1, "casing and whitespace differences are the same code")
	assert.Equal(t, "AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", merged[0].Code)
}

func TestMergeAndDedupeEmpty(t *testing.T) {
	scraper := NewShiftCodeScraperService(nil)

	assert.Empty(t, scraper.mergeAndDedupe(nil))
	assert.Empty(t, scraper.mergeAndDedupe([][]models.ShiftCode{nil, nil}))
}
