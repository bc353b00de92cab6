package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/housing-research/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertEmptyDataset    AlertType = "empty_dataset"
	AlertLowCompleteness AlertType = "low_completeness"
	AlertMetroPending    AlertType = "metro_pending_sync"
)

// coreFields are the metrics every resolution and comparison depends on.
var coreFields = map[string]bool{
	"homeownership_rate":      true,
	"median_home_price":       true,
	"median_rent":             true,
	"median_household_income": true,
}

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	now := time.Now().UTC()

	if snap.Quality.TotalRecords == 0 {
		return []Alert{{
			Type:      AlertEmptyDataset,
			Severity:  "high",
			Message:   "housing_stats has no rows",
			Timestamp: now,
		}}
	}

	var alerts []Alert
	for _, f := range snap.Quality.Fields {
		if !coreFields[f.Field] || f.CompletenessPct >= a.cfg.CompletenessThreshold {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertLowCompleteness,
			Severity: "high",
			Message: fmt.Sprintf("%s populated for %.1f%% of %d ZIPs, below threshold %.1f%%",
				f.Field, f.CompletenessPct, snap.Quality.TotalRecords, a.cfg.CompletenessThreshold),
			Details: map[string]any{
				"field":            f.Field,
				"completeness_pct": f.CompletenessPct,
				"threshold_pct":    a.cfg.CompletenessThreshold,
				"populated":        f.Populated,
			},
			Timestamp: now,
		})
	}

	if snap.Metro.PendingSync > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertMetroPending,
			Severity: "low",
			Message: fmt.Sprintf("%d ZIPs have a CBSA name but no metro_area; run `housing-research metro sync`",
				snap.Metro.PendingSync),
			Details: map[string]any{
				"pending_sync": snap.Metro.PendingSync,
				"has_cbsa":     snap.Metro.WithCBSA,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
