package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/housing-research/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// snapshots of the dataset and the behavioral tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS housing_stats (
	zip_code                     TEXT PRIMARY KEY,
	county_name                  TEXT,
	state_abbr                   TEXT,
	state_name                   TEXT,
	metro_area                   TEXT,
	cbsa_code                    TEXT,
	cbsa_name                    TEXT,
	population                   INTEGER,
	median_age                   REAL,
	homeownership_rate           REAL,
	vacancy_rate                 REAL,
	median_home_price            REAL,
	median_rent                  REAL,
	median_household_income      REAL,
	owner_occupied_units         INTEGER,
	renter_occupied_units        INTEGER,
	total_housing_units          INTEGER,
	redfin_median_sale_price     REAL,
	redfin_median_list_price     REAL,
	redfin_homes_sold            INTEGER,
	redfin_median_days_on_market REAL,
	updated_at                   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS hud_zip_county (
	zip_code    TEXT NOT NULL,
	county_fips TEXT NOT NULL,
	pref_city   TEXT,
	state_abbr  TEXT,
	res_ratio   REAL NOT NULL DEFAULT 0,
	tot_ratio   REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (zip_code, county_fips)
);

CREATE INDEX IF NOT EXISTS idx_housing_stats_state ON housing_stats(state_abbr);
CREATE INDEX IF NOT EXISTS idx_hud_zip_county_county ON hud_zip_county(county_fips);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LookupByZip(ctx context.Context, zip string) (*model.HousingRecord, error) {
	rec, err := scanHousingRecord(s.db.QueryRowContext(ctx,
		`SELECT `+housingColumns+` FROM housing_stats WHERE zip_code = ?`, zip))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: lookup zip %s", zip)
	}
	return rec, nil
}

// inClause returns "(?, ?, ...)" and the matching args.
func inClause(values []string) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")", args
}

func (s *SQLiteStore) LookupManyByZip(ctx context.Context, zips []string) ([]model.HousingRecord, error) {
	if len(zips) == 0 {
		return nil, nil
	}
	in, args := inClause(zips)
	return s.queryRecords(ctx, "sqlite: lookup zips",
		`SELECT `+housingColumns+` FROM housing_stats WHERE zip_code IN `+in+` ORDER BY zip_code`, args...)
}

func (s *SQLiteStore) queryRecords(ctx context.Context, op, query string, args ...any) ([]model.HousingRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) GlobalAverages(ctx context.Context, filter model.AverageFilter) (*model.Averages, error) {
	query := `SELECT COUNT(*), COUNT(DISTINCT state_abbr), MAX(state_name), SUM(population),
		AVG(homeownership_rate), AVG(median_home_price), AVG(median_rent),
		AVG(median_household_income), AVG(median_age), AVG(vacancy_rate)
		FROM housing_stats WHERE 1 = 1`
	var args []any
	if filter.RequireHomeownership {
		query += ` AND homeownership_rate IS NOT NULL`
	}
	if filter.StateAbbr != "" {
		args = append(args, filter.StateAbbr)
		query += ` AND state_abbr = ?`
	}

	var a model.Averages
	var stateName *string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ZipCount, &a.StateCount, &stateName, &a.TotalPopulation,
		&a.AvgHomeownershipRate, &a.AvgMedianHomePrice, &a.AvgMedianRent,
		&a.AvgMedianHouseholdIncome, &a.AvgMedianAge, &a.AvgVacancyRate,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: global averages")
	}
	if filter.StateAbbr != "" {
		a.StateName = derefString(stateName)
	}
	return &a, nil
}

func (s *SQLiteStore) EntriesForZip(ctx context.Context, zip string) ([]model.CrosswalkEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT zip_code, county_fips, COALESCE(pref_city, ''), COALESCE(state_abbr, ''),
		COALESCE(res_ratio, 0), COALESCE(tot_ratio, 0)
		FROM hud_zip_county WHERE zip_code = ?
		ORDER BY tot_ratio DESC NULLS LAST`, zip)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: crosswalk entries for %s", zip)
	}
	defer rows.Close()

	out := []model.CrosswalkEntry{}
	for rows.Next() {
		e, err := scanCrosswalkEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan crosswalk entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: crosswalk entries")
}

func (s *SQLiteStore) ZipsInCounty(ctx context.Context, countyFIPS string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT zip_code FROM hud_zip_county
		WHERE county_fips = ? AND res_ratio > 0 ORDER BY zip_code`, countyFIPS)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: zips in county %s", countyFIPS)
	}
	defer rows.Close()

	var zips []string
	for rows.Next() {
		var z string
		if err := rows.Scan(&z); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan county zip")
		}
		zips = append(zips, z)
	}
	return zips, eris.Wrap(rows.Err(), "sqlite: zips in county")
}

func (s *SQLiteStore) Search(ctx context.Context, q SearchQuery) ([]model.ZipSummary, error) {
	prefix := likePattern(q.Text) + "%"
	if isNumeric(q.Text) {
		return s.queryZipSummaries(ctx, "sqlite: search", `SELECT `+zipSummaryColumns+` FROM housing_stats
			WHERE zip_code LIKE ? ESCAPE '\' ORDER BY zip_code LIMIT ?`, prefix, q.Limit)
	}
	// SQLite LIKE is case-insensitive for ASCII.
	pattern := "%" + likePattern(q.Text) + "%"
	return s.queryZipSummaries(ctx, "sqlite: search", `SELECT `+zipSummaryColumns+` FROM housing_stats
		WHERE county_name LIKE ? ESCAPE '\' OR metro_area LIKE ? ESCAPE '\' OR zip_code LIKE ? ESCAPE '\' OR state_abbr = ?
		ORDER BY zip_code LIMIT ?`, pattern, pattern, prefix, stateMatch(q.Text), q.Limit)
}

func (s *SQLiteStore) queryZipSummaries(ctx context.Context, op, query string, args ...any) ([]model.ZipSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) ListByState(ctx context.Context, stateAbbr string, limit int) ([]model.HousingRecord, error) {
	return s.queryRecords(ctx, "sqlite: list by state",
		`SELECT `+housingColumns+` FROM housing_stats WHERE state_abbr = ? ORDER BY zip_code LIMIT ?`,
		stateAbbr, limit)
}

func (s *SQLiteStore) ListStates(ctx context.Context) ([]model.StateSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state_abbr, COUNT(*), SUM(population),
		AVG(median_home_price), AVG(homeownership_rate)
		FROM housing_stats WHERE state_abbr IS NOT NULL
		GROUP BY state_abbr ORDER BY state_abbr`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list states")
	}
	defer rows.Close()

	out := []model.StateSummary{}
	for rows.Next() {
		var st model.StateSummary
		if err := rows.Scan(&st.StateAbbr, &st.ZipCount, &st.TotalPopulation, &st.AvgMedianHomePrice, &st.AvgHomeownershipRate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan state")
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list states")
}

func (s *SQLiteStore) ListCounties(ctx context.Context, stateAbbr string) ([]model.CountySummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT county_name, COUNT(*), SUM(population),
		AVG(median_home_price), AVG(homeownership_rate), AVG(median_rent), AVG(median_household_income)
		FROM housing_stats WHERE state_abbr = ? AND county_name IS NOT NULL
		GROUP BY county_name ORDER BY county_name`, stateAbbr)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list counties in %s", stateAbbr)
	}
	defer rows.Close()

	out := []model.CountySummary{}
	for rows.Next() {
		var c model.CountySummary
		if err := rows.Scan(&c.CountyName, &c.ZipCount, &c.TotalPopulation, &c.AvgMedianHomePrice,
			&c.AvgHomeownershipRate, &c.AvgMedianRent, &c.AvgMedianHouseholdIncome); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan county")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list counties")
}

func (s *SQLiteStore) CountyStats(ctx context.Context, countyName, stateAbbr string) (*model.CountyStats, error) {
	var cs model.CountyStats
	var county, stateName, state *string
	err := s.db.QueryRowContext(ctx, `SELECT MAX(county_name), MAX(state_name), MAX(state_abbr), MAX(metro_area),
		COUNT(*), SUM(population),
		AVG(homeownership_rate), AVG(median_home_price), AVG(median_rent),
		AVG(median_household_income), AVG(median_age), AVG(vacancy_rate),
		SUM(total_housing_units), SUM(owner_occupied_units), SUM(renter_occupied_units)
		FROM housing_stats WHERE lower(county_name) = lower(?) AND state_abbr = ?`,
		countyName, stateAbbr,
	).Scan(&county, &stateName, &state, &cs.MetroArea,
		&cs.ZipCount, &cs.TotalPopulation,
		&cs.AvgHomeownershipRate, &cs.AvgMedianHomePrice, &cs.AvgMedianRent,
		&cs.AvgMedianHouseholdIncome, &cs.AvgMedianAge, &cs.AvgVacancyRate,
		&cs.TotalHousingUnits, &cs.TotalOwnerOccupiedUnits, &cs.TotalRenterOccupiedUnits)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: county stats %s, %s", countyName, stateAbbr)
	}
	if cs.ZipCount == 0 {
		return nil, nil
	}
	cs.CountyName = derefString(county)
	cs.StateName = derefString(stateName)
	cs.StateAbbr = derefString(state)
	return &cs, nil
}

func (s *SQLiteStore) ListZips(ctx context.Context, stateAbbr, county string, limit int) ([]model.ZipSummary, error) {
	if county != "" {
		return s.queryZipSummaries(ctx, "sqlite: list zips", `SELECT `+zipSummaryColumns+` FROM housing_stats
			WHERE state_abbr = ? AND lower(county_name) = lower(?)
			ORDER BY population DESC NULLS LAST, zip_code`, stateAbbr, county)
	}
	return s.queryZipSummaries(ctx, "sqlite: list zips", `SELECT `+zipSummaryColumns+` FROM housing_stats
		WHERE state_abbr = ?
		ORDER BY population DESC NULLS LAST, zip_code LIMIT ?`, stateAbbr, limit)
}

func (s *SQLiteStore) QualityReport(ctx context.Context) (*model.QualityReport, error) {
	counts := make([]int64, len(qualityFields)+1)
	dest := make([]any, len(counts))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := s.db.QueryRowContext(ctx, qualitySelect()).Scan(dest...); err != nil {
		return nil, eris.Wrap(err, "sqlite: quality report")
	}
	return buildQualityReport(counts[0], counts[1:]), nil
}

func (s *SQLiteStore) SyncMetroAreas(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE housing_stats SET metro_area = cbsa_name, updated_at = datetime('now')
		WHERE cbsa_name IS NOT NULL AND cbsa_name <> '' AND (metro_area IS NULL OR metro_area = '')`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: sync metro areas")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: sync metro areas rows affected")
}

func (s *SQLiteStore) MetroCoverage(ctx context.Context) (*model.MetroCoverage, error) {
	var c model.MetroCoverage
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COUNT(CASE WHEN cbsa_name IS NOT NULL AND cbsa_name <> '' THEN 1 END),
		COUNT(DISTINCT CASE WHEN cbsa_name IS NOT NULL AND cbsa_name <> '' THEN cbsa_name END),
		COUNT(CASE WHEN metro_area IS NOT NULL AND metro_area <> '' THEN 1 END),
		COUNT(CASE WHEN cbsa_name IS NOT NULL AND cbsa_name <> '' AND (metro_area IS NULL OR metro_area = '') THEN 1 END)
		FROM housing_stats`,
	).Scan(&c.TotalZips, &c.WithCBSA, &c.DistinctMetros, &c.WithMetroArea, &c.PendingSync)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: metro coverage")
	}
	return &c, nil
}

func (s *SQLiteStore) TopZips(ctx context.Context, withCBSA bool, limit int) ([]model.ZipSummary, error) {
	cond := `(cbsa_name IS NULL OR cbsa_name = '') AND state_abbr IS NOT NULL`
	if withCBSA {
		cond = `cbsa_name IS NOT NULL AND cbsa_name <> ''`
	}
	return s.queryZipSummaries(ctx, "sqlite: top zips", `SELECT `+zipSummaryColumns+` FROM housing_stats
		WHERE `+cond+` ORDER BY population DESC NULLS LAST, zip_code LIMIT ?`, limit)
}

var _ Store = (*SQLiteStore)(nil)
