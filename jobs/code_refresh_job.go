package jobs

import (
	"context"
	"time"

	"github.com/shiftwatch/shift-backend/models"
	"github.com/shiftwatch/shift-backend/services"
	"github.com/sirupsen/logrus"
)

// NewCodeNotifier receives codes that were not known before the latest
// refresh. The Discord bot implements this to push announcements to
// subscribed channels.
type NewCodeNotifier interface {
	NotifyNewCodes(ctx context.Context, codes []models.ShiftCode)
}

// CodeRefreshJob periodically re-scrapes every source so subscribed channels
// hear about new codes without anyone running a command
type CodeRefreshJob struct {
	Aggregator *services.CodeAggregatorService
	Notifier   NewCodeNotifier
	isRunning  bool
}

func NewCodeRefreshJob(aggregator *services.CodeAggregatorService, notifier NewCodeNotifier) *CodeRefreshJob {
	return &CodeRefreshJob{
		Aggregator: aggregator,
		Notifier:   notifier,
	}
}

// Start runs the job immediately and then on every tick of the interval
func (j *CodeRefreshJob) Start(interval time.Duration) {
	logrus.Infof("Starting Code Refresh Job (runs every %v)...", interval)
	ticker := time.NewTicker(interval)

	go func() {
		j.Run()

		for range ticker.C {
			j.Run()
		}
	}()
}

// Run executes a single refresh pass
func (j *CodeRefreshJob) Run() {
	if j.isRunning {
		logrus.Warn("Code refresh job already running, skipping")
		return
	}
	j.isRunning = true
	defer func() { j.isRunning = false }()

	startTime := time.Now()
	logrus.Info("Running Code Refresh Job...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	allCodes, newCodes, err := j.Aggregator.Refresh(ctx)
	if err != nil {
		logrus.Errorf("Code Refresh Job failed: %v", err)
		return
	}

	if len(newCodes) > 0 && j.Notifier != nil {
		j.Notifier.NotifyNewCodes(ctx, newCodes)
	}

	logrus.Infof("Code Refresh Job completed: %d active codes, %d new (took %v)",
		len(allCodes), len(newCodes), time.Since(startTime))
}
