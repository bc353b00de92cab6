package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/housing-research/internal/config"
	"github.com/sells-group/housing-research/internal/monitoring"
	"github.com/sells-group/housing-research/internal/resilience"
	"github.com/sells-group/housing-research/internal/resolve"
	"github.com/sells-group/housing-research/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "housing.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		retry := resilience.FromConfig(
			cfg.Store.Retry.MaxAttempts,
			cfg.Store.Retry.InitialBackoffMs,
			cfg.Store.Retry.MaxBackoffMs,
		)
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
			Retry:    retry,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newResolver wires the national comparator and resolver from config.
// metrics may be nil.
func newResolver(st store.Store, c *config.Config, metrics *monitoring.Metrics) (*resolve.Resolver, *resolve.NationalComparator) {
	natOpts := []resolve.NationalOption{resolve.WithRefreshTimeout(c.Store.QueryTimeout())}
	opts := resolve.Options{
		CensusVintage:    c.Sources.CensusVintage,
		CrosswalkVintage: c.Sources.CrosswalkVintage,
		SourcesChecked:   c.Sources.Checked,
	}
	if metrics != nil {
		natOpts = append(natOpts, resolve.WithCacheRecorder(metrics))
		opts.Recorder = metrics
	}

	national := resolve.NewNationalComparator(st, c.National.CacheTTL(), natOpts...)
	return resolve.NewResolver(st, st, national, opts), national
}
