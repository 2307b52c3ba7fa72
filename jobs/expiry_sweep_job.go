package jobs

import (
	"context"
	"time"

	"github.com/shiftwatch/shift-backend/services"
	"github.com/sirupsen/logrus"
)

// ExpirySweepJob deactivates codes in the database whose expiry date has
// passed. Only useful when persistence is configured.
type ExpirySweepJob struct {
	CodeService *services.CodeService
}

func NewExpirySweepJob(codeService *services.CodeService) *ExpirySweepJob {
	return &ExpirySweepJob{CodeService: codeService}
}

// Start runs the sweep on every tick of the interval
func (j *ExpirySweepJob) Start(interval time.Duration) {
	logrus.Infof("Starting Expiry Sweep Job (runs every %v)...", interval)
	ticker := time.NewTicker(interval)

	go func() {
		for range ticker.C {
			j.Run()
		}
	}()
}

// Run executes a single sweep
func (j *ExpirySweepJob) Run() {
	logrus.Info("Running Expiry Sweep Job...")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	deactivated, err := j.CodeService.MarkExpiredCodes(ctx)
	if err != nil {
		logrus.Errorf("Expiry Sweep Job failed: %v", err)
		return
	}

	logrus.Infof("Expiry Sweep Job completed: deactivated %d codes", deactivated)
}
