package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/shiftwatch/shift-backend/config"
	"github.com/shiftwatch/shift-backend/models"
	"github.com/shiftwatch/shift-backend/shared"
	"github.com/sirupsen/logrus"
)

// ShiftCodeScraperService collects SHiFT codes from all tracked sources.
// A failure on one source never blocks collection from the others; per-source
// circuit breakers keep a persistently broken source from being hammered.
type ShiftCodeScraperService struct {
	config          *config.ScraperConfig
	clientFactory   *shared.HTTPClientFactory
	rateLimiter     *shared.HTTPRequestRateLimiter
	circuitBreaker  *shared.SourceCircuitBreaker
	metrics         *shared.ScrapeMetrics
	extractor       *HTMLCodeExtractor
	utility         *UtilityService
	renderedFetcher *RenderedPageFetcher
}

// NewShiftCodeScraperService creates a scraper service with production defaults
func NewShiftCodeScraperService(cfg *config.ScraperConfig) *ShiftCodeScraperService {
	if cfg == nil {
		cfg = config.DefaultScraperConfig()
	}

	utility := NewUtilityService()
	return &ShiftCodeScraperService{
		config:          cfg,
		clientFactory:   shared.NewHTTPClientFactory(cfg.HTTPRequestTimeout),
		rateLimiter:     shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
		circuitBreaker:  shared.NewSourceCircuitBreaker(3, 5*time.Minute),
		metrics:         shared.NewScrapeMetrics(),
		extractor:       NewHTMLCodeExtractor(utility),
		utility:         utility,
		renderedFetcher: NewRenderedPageFetcher(30 * time.Second),
	}
}

// Metrics exposes the per-source scrape metrics
func (s *ShiftCodeScraperService) Metrics() *shared.ScrapeMetrics {
	return s.metrics
}

// fetchPage retrieves raw HTML for a URL with rate limiting, browser-like
// headers and retry with backoff
func (s *ShiftCodeScraperService) fetchPage(ctx context.Context, url string) (string, error) {
	s.rateLimiter.EnforceRateLimit()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	shared.SetBrowserLikeHeaders(request, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	client := s.clientFactory.CreateOptimizedHTTPClient(s.config.HTTPRequestTimeout)
	response, err := shared.ExecuteHTTPRequestWithRetry(client, request, s.config.MaxRetryAttempts)
	if err != nil {
		return "", shared.NewNetworkError("ShiftCodeScraperService", "fetchPage", url, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body from %s: %w", url, err)
	}

	return string(body), nil
}

// ScrapeMentalMars scrapes the MentalMars code tables
func (s *ShiftCodeScraperService) ScrapeMentalMars(ctx context.Context) ([]models.ShiftCode, error) {
	if !s.circuitBreaker.CanAttempt(SourceMentalMars) {
		logrus.WithField("source", SourceMentalMars).Warn("Circuit breaker is open, skipping scrape")
		return nil, nil
	}

	startTime := time.Now()
	s.rateLimiter.EnforceRateLimit()

	collector := colly.NewCollector()
	collector.SetRequestTimeout(s.config.HTTPRequestTimeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var pageHTML string
	collector.OnResponse(func(r *colly.Response) {
		pageHTML = string(r.Body)
	})

	if err := collector.Visit(s.config.MentalMarsURL); err != nil {
		s.circuitBreaker.RecordFailure(SourceMentalMars)
		s.metrics.RecordScrape(SourceMentalMars, 0, time.Since(startTime), err)
		return nil, shared.NewNetworkError("ShiftCodeScraperService", "ScrapeMentalMars", s.config.MentalMarsURL, err)
	}
	collector.Wait()

	codes := s.extractor.ExtractFromMentalMars(pageHTML)
	s.metrics.RecordScrape(SourceMentalMars, len(codes), time.Since(startTime), nil)

	if len(codes) > 0 {
		s.circuitBreaker.RecordSuccess(SourceMentalMars)
	} else {
		logrus.WithField("source", SourceMentalMars).Warn("No codes found, but no error occurred")
	}

	return codes, nil
}

// ScrapeTracker scrapes the xsmashx88x community tracker. When the static
// page yields nothing, the page is re-fetched through a headless browser in
// case the code list is only present in the rendered DOM.
func (s *ShiftCodeScraperService) ScrapeTracker(ctx context.Context) ([]models.ShiftCode, error) {
	if !s.circuitBreaker.CanAttempt(SourceTracker) {
		logrus.WithField("source", SourceTracker).Warn("Circuit breaker is open, skipping scrape")
		return nil, nil
	}

	startTime := time.Now()

	pageHTML, err := s.fetchPage(ctx, s.config.TrackerURL)
	if err != nil {
		s.circuitBreaker.RecordFailure(SourceTracker)
		s.metrics.RecordScrape(SourceTracker, 0, time.Since(startTime), err)
		return nil, err
	}

	codes := s.extractor.ExtractFromTracker(pageHTML)

	if len(codes) == 0 && s.renderedFetcher != nil {
		logrus.WithField("source", SourceTracker).Info("Static page yielded no codes, retrying with rendered fetch")
		if renderedHTML, renderErr := s.renderedFetcher.FetchRenderedHTML(ctx, s.config.TrackerURL); renderErr == nil {
			codes = s.extractor.ExtractFromTracker(renderedHTML)
		}
	}

	s.metrics.RecordScrape(SourceTracker, len(codes), time.Since(startTime), nil)

	if len(codes) > 0 {
		s.circuitBreaker.RecordSuccess(SourceTracker)
	} else {
		logrus.WithField("source", SourceTracker).Warn("No codes found, but no error occurred")
	}

	return codes, nil
}

// sourceScraper is one scrape routine feeding CollectAllCodes
type sourceScraper struct {
	name string
	run  func(ctx context.Context) ([]models.ShiftCode, error)
}

// CollectAllCodes scrapes every source concurrently and merges the results,
// deduplicating by normalized code string. The first occurrence of a code
// wins, in stable source order. An entirely empty result is valid.
func (s *ShiftCodeScraperService) CollectAllCodes(ctx context.Context) []models.ShiftCode {
	scrapers := []sourceScraper{
		{name: SourceMentalMars, run: s.ScrapeMentalMars},
		{name: SourceTracker, run: s.ScrapeTracker},
	}

	results := make([][]models.ShiftCode, len(scrapers))
	var wg sync.WaitGroup

	for i, scraper := range scrapers {
		wg.Add(1)
		go func(index int, scraper sourceScraper) {
			defer wg.Done()
			codes, err := scraper.run(ctx)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"source": scraper.name,
					"error":  err,
				}).Error("Source scrape failed, continuing with remaining sources")
				return
			}
			results[index] = codes
		}(i, scraper)
	}
	wg.Wait()

	uniqueCodes := s.mergeAndDedupe(results)
	logrus.WithField("total_unique_codes", len(uniqueCodes)).Info("Completed code collection across all sources")
	return uniqueCodes
}

// mergeAndDedupe concatenates per-source results and drops repeats of the
// same normalized code string, keeping the first occurrence
func (s *ShiftCodeScraperService) mergeAndDedupe(results [][]models.ShiftCode) []models.ShiftCode {
	seen := make(map[string]bool)
	var uniqueCodes []models.ShiftCode
	for _, sourceCodes := range results {
		for _, code := range sourceCodes {
			normalized := s.utility.NormalizeCode(code.Code)
			if seen[normalized] {
				continue
			}
			seen[normalized] = true
			code.Code = normalized
			uniqueCodes = append(uniqueCodes, code)
		}
	}
	return uniqueCodes
}
