package metrics

import (
	"time"

	"netwatch.dev/netwatch/internal/logging"
)

// Collector periodically refreshes gauges that aren't naturally updated by
// their owning subsystem (currently just process uptime).
type Collector struct {
	registry *Registry
	logger   *logging.Logger
	interval time.Duration
	startAt  time.Time
	stopCh   chan struct{}
}

// NewCollector creates a Collector that samples every interval.
func NewCollector(logger *logging.Logger, interval time.Duration) *Collector {
	return &Collector{
		registry: Get(),
		logger:   logger,
		interval: interval,
		startAt:  time.Now(),
		stopCh:   make(chan struct{}),
	}
}

// Start runs the collection loop until Stop is called.
func (c *Collector) Start() {
	c.logger.Info("starting metrics collector", "interval", c.interval.String())

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.registry.Uptime.Set(time.Since(c.startAt).Seconds())
		case <-c.stopCh:
			c.logger.Info("stopping metrics collector")
			return
		}
	}
}

// Stop ends the collection loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}
