// Package store reads housing statistics and the ZIP-to-county crosswalk
// from Postgres or SQLite.
package store

import (
	"context"

	"github.com/sells-group/housing-research/internal/model"
)

// HousingStore reads ZIP-level housing records.
type HousingStore interface {
	// LookupByZip returns nil, nil when the ZIP has no record.
	LookupByZip(ctx context.Context, zip string) (*model.HousingRecord, error)
	// LookupManyByZip returns the records that exist, ordered by ZIP.
	LookupManyByZip(ctx context.Context, zips []string) ([]model.HousingRecord, error)
	GlobalAverages(ctx context.Context, filter model.AverageFilter) (*model.Averages, error)
}

// Crosswalk reads the USPS ZIP-to-county crosswalk.
type Crosswalk interface {
	// EntriesForZip returns an empty slice when the ZIP is unknown.
	EntriesForZip(ctx context.Context, zip string) ([]model.CrosswalkEntry, error)
	// ZipsInCounty returns the distinct ZIPs with residential share above zero.
	ZipsInCounty(ctx context.Context, countyFIPS string) ([]string, error)
}

// SearchQuery selects ZIPs by prefix or by county/metro substring.
type SearchQuery struct {
	Text  string
	Limit int
}

// Research serves the listing, search and reporting queries of the API.
type Research interface {
	Search(ctx context.Context, q SearchQuery) ([]model.ZipSummary, error)
	ListByState(ctx context.Context, stateAbbr string, limit int) ([]model.HousingRecord, error)
	ListStates(ctx context.Context) ([]model.StateSummary, error)
	ListCounties(ctx context.Context, stateAbbr string) ([]model.CountySummary, error)
	// CountyStats returns nil, nil when no row matches.
	CountyStats(ctx context.Context, countyName, stateAbbr string) (*model.CountyStats, error)
	// ListZips caps the result at limit only when county is empty.
	ListZips(ctx context.Context, stateAbbr, county string, limit int) ([]model.ZipSummary, error)
	QualityReport(ctx context.Context) (*model.QualityReport, error)
}

// MetroSyncer backfills metro_area from the CBSA name and reports coverage.
type MetroSyncer interface {
	SyncMetroAreas(ctx context.Context) (int64, error)
	MetroCoverage(ctx context.Context) (*model.MetroCoverage, error)
	// TopZips lists the most populous ZIPs with (or without) a CBSA name.
	TopZips(ctx context.Context, withCBSA bool, limit int) ([]model.ZipSummary, error)
}

// Store is the full persistence surface used by the CLI and the API.
type Store interface {
	HousingStore
	Crosswalk
	Research
	MetroSyncer

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
