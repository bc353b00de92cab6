package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/housing-research/internal/model"
)

// Snapshot is a point-in-time view of dataset health.
type Snapshot struct {
	Quality     model.QualityReport `json:"quality"`
	Metro       model.MetroCoverage `json:"metro"`
	CollectedAt time.Time           `json:"collected_at"`
}

// HealthSource is the store surface the collector reads.
type HealthSource interface {
	QualityReport(ctx context.Context) (*model.QualityReport, error)
	MetroCoverage(ctx context.Context) (*model.MetroCoverage, error)
}

// Collector gathers dataset health from the store.
type Collector struct {
	source HealthSource
}

// NewCollector creates a new health collector.
func NewCollector(source HealthSource) *Collector {
	return &Collector{source: source}
}

// Collect reads the quality report and metro coverage.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	quality, err := c.source.QualityReport(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect quality report")
	}
	metro, err := c.source.MetroCoverage(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect metro coverage")
	}
	return &Snapshot{
		Quality:     *quality,
		Metro:       *metro,
		CollectedAt: time.Now().UTC(),
	}, nil
}
