package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shiftwatch/shift-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCollector serves canned code sets and counts scrape passes
type stubCollector struct {
	calls   int64
	results [][]models.ShiftCode
}

func (c *stubCollector) CollectAllCodes(ctx context.Context) []models.ShiftCode {
	call := atomic.AddInt64(&c.calls, 1)
	if len(c.results) == 0 {
		return nil
	}
	index := int(call) - 1
	if index >= len(c.results) {
		index = len(c.results) - 1
	}
	return c.results[index]
}

func (c *stubCollector) callCount() int64 {
	return atomic.LoadInt64(&c.calls)
}

func makeCode(code string) models.ShiftCode {
	return models.NewShiftCode(code, "Golden Key", nil, SourceMentalMars)
}

func TestAggregatorServesFromCacheWithinTTL(t *testing.T) {
	collector := &stubCollector{results: [][]models.ShiftCode{
		{makeCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE")},
	}}
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)
	aggregator := NewCodeAggregatorService(collector, cache, nil, 1*time.Minute)

	ctx := context.Background()
	first, err := aggregator.GetCodes(ctx, false)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := aggregator.GetCodes(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, collector.callCount(), "a cache hit must not trigger a scrape")
}

func TestAggregatorForceRefreshBypassesCache(t *testing.T) {
	collector := &stubCollector{results: [][]models.ShiftCode{
		{makeCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE")},
	}}
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)
	aggregator := NewCodeAggregatorService(collector, cache, nil, 1*time.Minute)

	ctx := context.Background()
	_, err := aggregator.GetCodes(ctx, false)
	require.NoError(t, err)
	_, err = aggregator.GetCodes(ctx, true)
	require.NoError(t, err)

	assert.EqualValues(t, 2, collector.callCount())
}

func TestAggregatorServesStaleOnTotalFailure(t *testing.T) {
	collector := &stubCollector{results: [][]models.ShiftCode{
		{makeCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE")},
		nil,
	}}
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)
	aggregator := NewCodeAggregatorService(collector, cache, nil, 10*time.Millisecond)

	ctx := context.Background()
	first, err := aggregator.GetCodes(ctx, false)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Let the TTL lapse, then scrape again with every source failing
	time.Sleep(20 * time.Millisecond)
	second, err := aggregator.GetCodes(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first, second, "the last known result is served when sources fail")
	assert.EqualValues(t, 2, collector.callCount())
}

func TestAggregatorReportsNewCodes(t *testing.T) {
	collector := &stubCollector{results: [][]models.ShiftCode{
		{makeCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE")},
		{makeCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE"), makeCode("11111-22222-33333-44444-55555")},
	}}
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)
	aggregator := NewCodeAggregatorService(collector, cache, nil, 1*time.Minute)

	ctx := context.Background()
	_, newCodes, err := aggregator.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, newCodes, 1)

	_, newCodes, err = aggregator.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, newCodes, 1, "only the code not seen before counts as new")
	assert.Equal(t, "11111-22222-33333-44444-55555", newCodes[0].Code)
}

func TestAggregatorLatestCode(t *testing.T) {
	collector := &stubCollector{results: [][]models.ShiftCode{
		{makeCode("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE")},
	}}
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)
	aggregator := NewCodeAggregatorService(collector, cache, nil, 1*time.Minute)

	latest, err := aggregator.LatestCode(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", latest.Code)
}

func TestAggregatorEmptyWithNoHistory(t *testing.T) {
	collector := &stubCollector{}
	cache := NewCacheServiceWithConfig(1*time.Minute, 10)
	aggregator := NewCodeAggregatorService(collector, cache, nil, 1*time.Minute)

	codes, err := aggregator.GetCodes(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, codes)

	latest, err := aggregator.LatestCode(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}
