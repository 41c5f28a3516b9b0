package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/health-alarm/internal/config"
)

// Collector runs check rounds over the configured services.
//
// Notify is called synchronously from the round, so a slow mail relay delays
// the next round.
type Collector struct {
	services []config.ServiceConfig
	checker  *Checker
	notifier Notifier
	recorder Recorder
	interval time.Duration
	logger   *zap.Logger
}

// NewCollector wires a Collector. recorder may be nil.
func NewCollector(services []config.ServiceConfig, checker *Checker, notifier Notifier, recorder Recorder, interval time.Duration, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		services: services,
		checker:  checker,
		notifier: notifier,
		recorder: recorder,
		interval: interval,
		logger:   logger,
	}
}

// RunOnce checks every service in configuration order and notifies when at
// least one finding was produced. It returns the findings of the round, or nil
// when ctx was cancelled before the round completed.
func (c *Collector) RunOnce(ctx context.Context) []Finding {
	findings := make([]Finding, 0)
	for _, svc := range c.services {
		if ctx.Err() != nil {
			break
		}
		if f, bad := c.checker.Check(ctx, svc); bad {
			c.logger.Warn("service check failed",
				zap.String("service", svc.Name),
				zap.String("status", f.Status),
				zap.String("message", f.Message),
			)
			findings = append(findings, f)
		}
	}

	// Checks interrupted by cancellation report context errors, not outages.
	if ctx.Err() != nil {
		c.logger.Info("check round abandoned", zap.Error(ctx.Err()))
		return nil
	}

	if c.recorder != nil {
		c.recorder.Record(c.checker.clock(), findings)
	}

	if len(findings) > 0 && c.notifier != nil {
		c.notifier.Notify(findings)
		if c.recorder != nil {
			c.recorder.MarkAlertDispatched()
		}
	}
	return findings
}

// Run executes a round immediately and then on every interval tick until ctx is done.
func (c *Collector) Run(ctx context.Context) {
	interval := c.interval
	if interval <= 0 {
		interval = time.Minute
	}

	c.logger.Info("health collector started",
		zap.Int("services", len(c.services)),
		zap.Duration("interval", interval),
	)

	c.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("health collector stopped")
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}
