package services

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// RenderedPageFetcher fetches pages through a headless browser. The tracker
// builds part of its page with javascript; when the static HTML carries no
// usable script payload the rendered DOM is the only place the codes exist.
type RenderedPageFetcher struct {
	timeout time.Duration
}

// NewRenderedPageFetcher creates a rendered page fetcher with the given
// per-page timeout
func NewRenderedPageFetcher(timeout time.Duration) *RenderedPageFetcher {
	return &RenderedPageFetcher{timeout: timeout}
}

// FetchRenderedHTML navigates a headless Chrome instance to the URL and
// returns the rendered document HTML
func (f *RenderedPageFetcher) FetchRenderedHTML(ctx context.Context, url string) (string, error) {
	startTime := time.Now()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.timeout)
	defer cancelTimeout()

	var renderedHTML string
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1366, 768),
		chromedp.Navigate(url),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery),
	)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "RenderedPageFetcher",
			"url":       url,
			"error":     err,
		}).Warn("Headless browser fetch failed")
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"component": "RenderedPageFetcher",
		"url":       url,
		"duration":  time.Since(startTime),
		"html_size": len(renderedHTML),
	}).Debug("Fetched rendered page")

	return renderedHTML, nil
}
