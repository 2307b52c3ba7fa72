package services

import (
	"context"
	"sync"
	"time"

	"github.com/shiftwatch/shift-backend/models"
	"github.com/sirupsen/logrus"
)

const allCodesCacheKey = "all_shift_codes"

// CodeCollector scrapes every source and returns deduplicated codes
type CodeCollector interface {
	CollectAllCodes(ctx context.Context) []models.ShiftCode
}

// CodeStore persists codes between runs. The aggregator works without one;
// a nil store means codes live only in memory for the process lifetime.
type CodeStore interface {
	SyncScrapedCodes(ctx context.Context, codes []models.ShiftCode) ([]models.ShiftCode, error)
	GetActiveCodes(ctx context.Context) ([]models.ShiftCode, error)
	GetLatestCode(ctx context.Context) (*models.ShiftCode, error)
}

// CodeAggregatorService is the single read path for SHiFT codes. It serves
// from cache within the TTL, refreshes from the scrapers on miss or demand,
// and falls back to the last known result when every source fails.
type CodeAggregatorService struct {
	scraper  CodeCollector
	cache    *CacheService
	store    CodeStore
	cacheTTL time.Duration

	mutex           sync.Mutex
	firstDiscovered map[string]time.Time
}

// NewCodeAggregatorService creates an aggregator. store may be nil when no
// database is configured.
func NewCodeAggregatorService(scraper CodeCollector, cache *CacheService, store CodeStore, cacheTTL time.Duration) *CodeAggregatorService {
	return &CodeAggregatorService{
		scraper:         scraper,
		cache:           cache,
		store:           store,
		cacheTTL:        cacheTTL,
		firstDiscovered: make(map[string]time.Time),
	}
}

// GetCodes returns the current set of active codes. Within the cache TTL no
// network requests are made unless forceRefresh is set.
func (a *CodeAggregatorService) GetCodes(ctx context.Context, forceRefresh bool) ([]models.ShiftCode, error) {
	if !forceRefresh {
		if cached, found := a.cache.Get(allCodesCacheKey); found {
			if codes, ok := cached.([]models.ShiftCode); ok {
				return codes, nil
			}
		}
	}

	codes, _, err := a.Refresh(ctx)
	return codes, err
}

// GetCodesBySource returns the current codes from a single source
func (a *CodeAggregatorService) GetCodesBySource(ctx context.Context, source string) ([]models.ShiftCode, error) {
	codes, err := a.GetCodes(ctx, false)
	if err != nil {
		return nil, err
	}

	var filtered []models.ShiftCode
	for _, code := range codes {
		if code.Source == source {
			filtered = append(filtered, code)
		}
	}
	return filtered, nil
}

// LatestCode returns the most recently discovered active code, or nil when
// no codes are known
func (a *CodeAggregatorService) LatestCode(ctx context.Context) (*models.ShiftCode, error) {
	if a.store != nil {
		return a.store.GetLatestCode(ctx)
	}

	codes, err := a.GetCodes(ctx, false)
	if err != nil || len(codes) == 0 {
		return nil, err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	latest := codes[0]
	latestSeen := a.firstDiscovered[latest.Code]
	for _, code := range codes[1:] {
		if seen := a.firstDiscovered[code.Code]; seen.After(latestSeen) {
			latest = code
			latestSeen = seen
		}
	}
	return &latest, nil
}

// Refresh scrapes all sources now and returns the full active set plus the
// codes that were not previously known. When scraping yields nothing the
// last cached result is served unchanged, even past its TTL.
func (a *CodeAggregatorService) Refresh(ctx context.Context) ([]models.ShiftCode, []models.ShiftCode, error) {
	scraped := a.scraper.CollectAllCodes(ctx)

	if len(scraped) == 0 {
		if stale, found := a.cache.GetStale(allCodesCacheKey); found {
			if codes, ok := stale.([]models.ShiftCode); ok {
				logrus.Warn("All sources returned no codes, serving last known result")
				return codes, nil, nil
			}
		}
		logrus.Warn("All sources returned no codes and no cached result exists")
		return nil, nil, nil
	}

	newCodes := a.recordDiscoveries(scraped)

	allCodes := scraped
	if a.store != nil {
		persistedNew, err := a.store.SyncScrapedCodes(ctx, scraped)
		if err != nil {
			logrus.WithError(err).Error("Failed to persist scraped codes, continuing with in-memory result")
		} else {
			newCodes = persistedNew
		}

		if active, err := a.store.GetActiveCodes(ctx); err != nil {
			logrus.WithError(err).Error("Failed to load active codes from database, serving scraped result")
		} else {
			allCodes = active
		}
	}

	a.cache.SetWithTTL(allCodesCacheKey, allCodes, a.cacheTTL)

	logrus.WithFields(logrus.Fields{
		"total_codes": len(allCodes),
		"new_codes":   len(newCodes),
	}).Info("Refreshed code set")

	return allCodes, newCodes, nil
}

// recordDiscoveries tracks first-seen times in memory and returns the codes
// this process had not seen before
func (a *CodeAggregatorService) recordDiscoveries(scraped []models.ShiftCode) []models.ShiftCode {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	now := time.Now()
	var newCodes []models.ShiftCode
	for _, code := range scraped {
		if _, known := a.firstDiscovered[code.Code]; known {
			continue
		}
		a.firstDiscovered[code.Code] = now
		newCodes = append(newCodes, code)
	}
	return newCodes
}
