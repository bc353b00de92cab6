package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/housing-research/internal/db"
	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	retry   resilience.RetryConfig
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
	Retry    resilience.RetryConfig
}

const crosswalkEntriesSQL = `SELECT zip_code, county_fips::text, COALESCE(pref_city, ''), COALESCE(state_abbr, ''),
	COALESCE(res_ratio, 0)::float8, COALESCE(tot_ratio, 0)::float8
	FROM hud_zip_county WHERE zip_code = $1
	ORDER BY tot_ratio DESC NULLS LAST`

const zipsInCountySQL = `SELECT DISTINCT zip_code FROM hud_zip_county
	WHERE county_fips = $1 AND res_ratio > 0
	ORDER BY zip_code`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	retry := resilience.DefaultRetryConfig()
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		if poolCfg.Retry.MaxAttempts > 0 {
			retry = poolCfg.Retry
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, retry: retry}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS housing_stats (
	zip_code                     TEXT PRIMARY KEY,
	county_name                  TEXT,
	state_abbr                   TEXT,
	state_name                   TEXT,
	metro_area                   TEXT,
	cbsa_code                    TEXT,
	cbsa_name                    TEXT,
	population                   BIGINT,
	median_age                   DOUBLE PRECISION,
	homeownership_rate           DOUBLE PRECISION,
	vacancy_rate                 DOUBLE PRECISION,
	median_home_price            DOUBLE PRECISION,
	median_rent                  DOUBLE PRECISION,
	median_household_income      DOUBLE PRECISION,
	owner_occupied_units         BIGINT,
	renter_occupied_units        BIGINT,
	total_housing_units          BIGINT,
	redfin_median_sale_price     DOUBLE PRECISION,
	redfin_median_list_price     DOUBLE PRECISION,
	redfin_homes_sold            BIGINT,
	redfin_median_days_on_market DOUBLE PRECISION,
	updated_at                   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS hud_zip_county (
	zip_code    TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	pref_city   TEXT,
	state_abbr  TEXT,
	res_ratio   DOUBLE PRECISION NOT NULL DEFAULT 0,
	tot_ratio   DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (zip_code, county_fips)
);

CREATE INDEX IF NOT EXISTS idx_housing_stats_state ON housing_stats(state_abbr);
CREATE INDEX IF NOT EXISTS idx_housing_stats_county ON housing_stats(state_abbr, lower(county_name));
CREATE INDEX IF NOT EXISTS idx_hud_zip_county_county ON hud_zip_county(county_fips);
`

// Migrate creates the tables and indexes. The DDL is idempotent, so
// transient failures are retried.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("migrate")
	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, postgresMigration)
		return err
	})
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// read runs a read with the store's retry policy.
func read[T any](ctx context.Context, s *PostgresStore, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger(op)
	return resilience.DoVal(ctx, cfg, fn)
}

func (s *PostgresStore) LookupByZip(ctx context.Context, zip string) (*model.HousingRecord, error) {
	return read(ctx, s, "lookup_by_zip", func(ctx context.Context) (*model.HousingRecord, error) {
		rec, err := scanHousingRecord(s.pool.QueryRow(ctx,
			`SELECT `+housingColumns+` FROM housing_stats WHERE zip_code = $1`, zip))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, eris.Wrapf(err, "postgres: lookup zip %s", zip)
		}
		return rec, nil
	})
}

func (s *PostgresStore) LookupManyByZip(ctx context.Context, zips []string) ([]model.HousingRecord, error) {
	if len(zips) == 0 {
		return nil, nil
	}
	return read(ctx, s, "lookup_many_by_zip", func(ctx context.Context) ([]model.HousingRecord, error) {
		return s.queryRecords(ctx, "postgres: lookup zips",
			`SELECT `+housingColumns+` FROM housing_stats WHERE zip_code = ANY($1) ORDER BY zip_code`, zips)
	})
}

func (s *PostgresStore) queryRecords(ctx context.Context, op, sql string, args ...any) ([]model.HousingRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, op)
	}
	defer rows.Close()

	var out []model.HousingRecord
	for rows.Next() {
		rec, err := scanHousingRecord(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: scan", op)
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), op)
}

func (s *PostgresStore) GlobalAverages(ctx context.Context, filter model.AverageFilter) (*model.Averages, error) {
	sql := `SELECT COUNT(*), COUNT(DISTINCT state_abbr), MAX(state_name),
		SUM(population)::bigint,
		AVG(homeownership_rate)::float8, AVG(median_home_price)::float8, AVG(median_rent)::float8,
		AVG(median_household_income)::float8, AVG(median_age)::float8, AVG(vacancy_rate)::float8
		FROM housing_stats WHERE true`
	var args []any
	if filter.RequireHomeownership {
		sql += ` AND homeownership_rate IS NOT NULL`
	}
	if filter.StateAbbr != "" {
		args = append(args, filter.StateAbbr)
		sql += ` AND state_abbr = $1`
	}

	return read(ctx, s, "global_averages", func(ctx context.Context) (*model.Averages, error) {
		var a model.Averages
		var zipCount, stateCount int64
		var stateName *string
		err := s.pool.QueryRow(ctx, sql, args...).Scan(
			&zipCount, &stateCount, &stateName, &a.TotalPopulation,
			&a.AvgHomeownershipRate, &a.AvgMedianHomePrice, &a.AvgMedianRent,
			&a.AvgMedianHouseholdIncome, &a.AvgMedianAge, &a.AvgVacancyRate,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: global averages")
		}
		a.ZipCount = int(zipCount)
		a.StateCount = int(stateCount)
		if filter.StateAbbr != "" {
			a.StateName = derefString(stateName)
		}
		return &a, nil
	})
}

func (s *PostgresStore) EntriesForZip(ctx context.Context, zip string) ([]model.CrosswalkEntry, error) {
	return read(ctx, s, "entries_for_zip", func(ctx context.Context) ([]model.CrosswalkEntry, error) {
		rows, err := s.pool.Query(ctx, crosswalkEntriesSQL, zip)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: crosswalk entries for %s", zip)
		}
		defer rows.Close()

		out := []model.CrosswalkEntry{}
		for rows.Next() {
			e, err := scanCrosswalkEntry(rows)
			if err != nil {
				return nil, eris.Wrap(err, "postgres: scan crosswalk entry")
			}
			out = append(out, e)
		}
		return out, eris.Wrap(rows.Err(), "postgres: crosswalk entries")
	})
}

func (s *PostgresStore) ZipsInCounty(ctx context.Context, countyFIPS string) ([]string, error) {
	return read(ctx, s, "zips_in_county", func(ctx context.Context) ([]string, error) {
		rows, err := s.pool.Query(ctx, zipsInCountySQL, countyFIPS)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: zips in county %s", countyFIPS)
		}
		zips, err := pgx.CollectRows(rows, pgx.RowTo[string])
		return zips, eris.Wrap(err, "postgres: collect county zips")
	})
}

func (s *PostgresStore) Search(ctx context.Context, q SearchQuery) ([]model.ZipSummary, error) {
	prefix := likePattern(q.Text) + "%"
	var sql string
	var args []any
	if isNumeric(q.Text) {
		sql = `SELECT ` + zipSummaryColumns + ` FROM housing_stats
			WHERE zip_code LIKE $1 ORDER BY zip_code LIMIT $2`
		args = []any{prefix, q.Limit}
	} else {
		sql = `SELECT ` + zipSummaryColumns + ` FROM housing_stats
			WHERE county_name ILIKE $1 OR metro_area ILIKE $1 OR zip_code LIKE $2 OR state_abbr = $4
			ORDER BY zip_code LIMIT $3`
		args = []any{"%" + likePattern(q.Text) + "%", prefix, q.Limit, stateMatch(q.Text)}
	}
	return read(ctx, s, "search", func(ctx context.Context) ([]model.ZipSummary, error) {
		return s.queryZipSummaries(ctx, "postgres: search", sql, args...)
	})
}

func (s *PostgresStore) queryZipSummaries(ctx context.Context, op, sql string, args ...any) ([]model.ZipSummary, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, op)
	}
	defer rows.Close()

	out := []model.ZipSummary{}
	for rows.Next() {
		z, err := scanZipSummary(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: scan", op)
		}
		out = append(out, z)
	}
	return out, eris.Wrap(rows.Err(), op)
}

func (s *PostgresStore) ListByState(ctx context.Context, stateAbbr string, limit int) ([]model.HousingRecord, error) {
	return read(ctx, s, "list_by_state", func(ctx context.Context) ([]model.HousingRecord, error) {
		return s.queryRecords(ctx, "postgres: list by state",
			`SELECT `+housingColumns+` FROM housing_stats WHERE state_abbr = $1 ORDER BY zip_code LIMIT $2`,
			stateAbbr, limit)
	})
}

func (s *PostgresStore) ListStates(ctx context.Context) ([]model.StateSummary, error) {
	return read(ctx, s, "list_states", func(ctx context.Context) ([]model.StateSummary, error) {
		rows, err := s.pool.Query(ctx, `SELECT state_abbr, COUNT(*), SUM(population)::bigint,
			AVG(median_home_price)::float8, AVG(homeownership_rate)::float8
			FROM housing_stats WHERE state_abbr IS NOT NULL
			GROUP BY state_abbr ORDER BY state_abbr`)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list states")
		}
		defer rows.Close()

		out := []model.StateSummary{}
		for rows.Next() {
			var st model.StateSummary
			var n int64
			if err := rows.Scan(&st.StateAbbr, &n, &st.TotalPopulation, &st.AvgMedianHomePrice, &st.AvgHomeownershipRate); err != nil {
				return nil, eris.Wrap(err, "postgres: scan state")
			}
			st.ZipCount = int(n)
			out = append(out, st)
		}
		return out, eris.Wrap(rows.Err(), "postgres: list states")
	})
}

func (s *PostgresStore) ListCounties(ctx context.Context, stateAbbr string) ([]model.CountySummary, error) {
	return read(ctx, s, "list_counties", func(ctx context.Context) ([]model.CountySummary, error) {
		rows, err := s.pool.Query(ctx, `SELECT county_name, COUNT(*), SUM(population)::bigint,
			AVG(median_home_price)::float8, AVG(homeownership_rate)::float8,
			AVG(median_rent)::float8, AVG(median_household_income)::float8
			FROM housing_stats WHERE state_abbr = $1 AND county_name IS NOT NULL
			GROUP BY county_name ORDER BY county_name`, stateAbbr)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: list counties in %s", stateAbbr)
		}
		defer rows.Close()

		out := []model.CountySummary{}
		for rows.Next() {
			var c model.CountySummary
			var n int64
			if err := rows.Scan(&c.CountyName, &n, &c.TotalPopulation, &c.AvgMedianHomePrice,
				&c.AvgHomeownershipRate, &c.AvgMedianRent, &c.AvgMedianHouseholdIncome); err != nil {
				return nil, eris.Wrap(err, "postgres: scan county")
			}
			c.ZipCount = int(n)
			out = append(out, c)
		}
		return out, eris.Wrap(rows.Err(), "postgres: list counties")
	})
}

func (s *PostgresStore) CountyStats(ctx context.Context, countyName, stateAbbr string) (*model.CountyStats, error) {
	return read(ctx, s, "county_stats", func(ctx context.Context) (*model.CountyStats, error) {
		var cs model.CountyStats
		var n int64
		var county, stateName, state *string
		err := s.pool.QueryRow(ctx, `SELECT MAX(county_name), MAX(state_name), MAX(state_abbr), MAX(metro_area),
			COUNT(*), SUM(population)::bigint,
			AVG(homeownership_rate)::float8, AVG(median_home_price)::float8, AVG(median_rent)::float8,
			AVG(median_household_income)::float8, AVG(median_age)::float8, AVG(vacancy_rate)::float8,
			SUM(total_housing_units)::bigint, SUM(owner_occupied_units)::bigint, SUM(renter_occupied_units)::bigint
			FROM housing_stats WHERE lower(county_name) = lower($1) AND state_abbr = $2`,
			countyName, stateAbbr,
		).Scan(&county, &stateName, &state, &cs.MetroArea,
			&n, &cs.TotalPopulation,
			&cs.AvgHomeownershipRate, &cs.AvgMedianHomePrice, &cs.AvgMedianRent,
			&cs.AvgMedianHouseholdIncome, &cs.AvgMedianAge, &cs.AvgVacancyRate,
			&cs.TotalHousingUnits, &cs.TotalOwnerOccupiedUnits, &cs.TotalRenterOccupiedUnits)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: county stats %s, %s", countyName, stateAbbr)
		}
		if n == 0 {
			return nil, nil
		}
		cs.ZipCount = int(n)
		cs.CountyName = derefString(county)
		cs.StateName = derefString(stateName)
		cs.StateAbbr = derefString(state)
		return &cs, nil
	})
}

func (s *PostgresStore) ListZips(ctx context.Context, stateAbbr, county string, limit int) ([]model.ZipSummary, error) {
	return read(ctx, s, "list_zips", func(ctx context.Context) ([]model.ZipSummary, error) {
		if county != "" {
			return s.queryZipSummaries(ctx, "postgres: list zips", `SELECT `+zipSummaryColumns+` FROM housing_stats
				WHERE state_abbr = $1 AND lower(county_name) = lower($2)
				ORDER BY population DESC NULLS LAST, zip_code`, stateAbbr, county)
		}
		return s.queryZipSummaries(ctx, "postgres: list zips", `SELECT `+zipSummaryColumns+` FROM housing_stats
			WHERE state_abbr = $1
			ORDER BY population DESC NULLS LAST, zip_code LIMIT $2`, stateAbbr, limit)
	})
}

func (s *PostgresStore) QualityReport(ctx context.Context) (*model.QualityReport, error) {
	return read(ctx, s, "quality_report", func(ctx context.Context) (*model.QualityReport, error) {
		counts := make([]int64, len(qualityFields)+1)
		dest := make([]any, len(counts))
		for i := range counts {
			dest[i] = &counts[i]
		}
		if err := s.pool.QueryRow(ctx, qualitySelect()).Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "postgres: quality report")
		}
		return buildQualityReport(counts[0], counts[1:]), nil
	})
}

func (s *PostgresStore) SyncMetroAreas(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE housing_stats SET metro_area = cbsa_name, updated_at = now()
		WHERE cbsa_name IS NOT NULL AND cbsa_name <> '' AND (metro_area IS NULL OR metro_area = '')`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: sync metro areas")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) MetroCoverage(ctx context.Context) (*model.MetroCoverage, error) {
	return read(ctx, s, "metro_coverage", func(ctx context.Context) (*model.MetroCoverage, error) {
		var c model.MetroCoverage
		err := s.pool.QueryRow(ctx, `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE cbsa_name IS NOT NULL AND cbsa_name <> ''),
			COUNT(DISTINCT cbsa_name) FILTER (WHERE cbsa_name IS NOT NULL AND cbsa_name <> ''),
			COUNT(*) FILTER (WHERE metro_area IS NOT NULL AND metro_area <> ''),
			COUNT(*) FILTER (WHERE cbsa_name IS NOT NULL AND cbsa_name <> '' AND (metro_area IS NULL OR metro_area = ''))
			FROM housing_stats`,
		).Scan(&c.TotalZips, &c.WithCBSA, &c.DistinctMetros, &c.WithMetroArea, &c.PendingSync)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: metro coverage")
		}
		return &c, nil
	})
}

func (s *PostgresStore) TopZips(ctx context.Context, withCBSA bool, limit int) ([]model.ZipSummary, error) {
	cond := `(cbsa_name IS NULL OR cbsa_name = '') AND state_abbr IS NOT NULL`
	if withCBSA {
		cond = `cbsa_name IS NOT NULL AND cbsa_name <> ''`
	}
	return read(ctx, s, "top_zips", func(ctx context.Context) ([]model.ZipSummary, error) {
		return s.queryZipSummaries(ctx, "postgres: top zips", `SELECT `+zipSummaryColumns+` FROM housing_stats
			WHERE `+cond+` ORDER BY population DESC NULLS LAST, zip_code LIMIT $1`, limit)
	})
}

var _ Store = (*PostgresStore)(nil)
