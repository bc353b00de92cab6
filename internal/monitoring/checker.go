package monitoring

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sells-group/housing-research/internal/config"
)

// Checker periodically collects dataset health, publishes it as gauges and
// sends alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	metrics   *Metrics
	cfg       config.MonitoringConfig
	clock     clockwork.Clock

	onChange func()
	last     *Snapshot
}

// NewChecker creates a background health checker. metrics may be nil.
func NewChecker(collector *Collector, alerter *Alerter, metrics *Metrics, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		metrics:   metrics,
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
	}
}

// WithClock replaces the ticker clock.
func (c *Checker) WithClock(clock clockwork.Clock) *Checker {
	c.clock = clock
	return c
}

// OnDatasetChange registers fn to run when a check sees the row count or
// any field's populated count differ from the previous check.
func (c *Checker) OnDatasetChange(fn func()) *Checker {
	c.onChange = fn
	return c
}

// Run checks once immediately, then on every interval. It blocks until ctx
// is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting health checker", zap.Duration("interval", interval))

	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("health checker stopped")
			return
		case <-ticker.Chan():
			c.Check(ctx)
		}
	}
}

// Check runs a single collect, publish and alert cycle.
func (c *Checker) Check(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	if ctx.Err() != nil {
		return
	}

	snap, err := c.collector.Collect(ctx)
	if err != nil {
		log.Error("monitoring: failed to collect health", zap.Error(err))
		return
	}
	if c.metrics != nil {
		c.metrics.ObserveSnapshot(snap)
	}
	if c.last != nil && c.onChange != nil && datasetChanged(c.last, snap) {
		log.Info("monitoring: dataset changed",
			zap.Int64("previous_rows", c.last.Quality.TotalRecords),
			zap.Int64("rows", snap.Quality.TotalRecords),
		)
		c.onChange()
	}
	c.last = snap

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered")
		return
	}
	for _, a := range alerts {
		log.Warn("monitoring: "+a.Message, zap.String("type", string(a.Type)))
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: health check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
}

func datasetChanged(prev, cur *Snapshot) bool {
	if prev.Quality.TotalRecords != cur.Quality.TotalRecords ||
		len(prev.Quality.Fields) != len(cur.Quality.Fields) {
		return true
	}
	for i, f := range cur.Quality.Fields {
		if prev.Quality.Fields[i].Field != f.Field || prev.Quality.Fields[i].Populated != f.Populated {
			return true
		}
	}
	return false
}
