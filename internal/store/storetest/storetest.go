// Package storetest provides SQLite-backed fixtures for tests that need a
// real store.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/store"
)

// NewSQLite opens a migrated SQLite store in a temp dir.
func NewSQLite(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "housing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// NewSeeded opens a migrated SQLite store loaded with Records and Crosswalk.
func NewSeeded(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st := NewSQLite(t)
	InsertRecords(t, st, Records()...)
	InsertCrosswalk(t, st, Crosswalk()...)
	return st
}

// InsertRecords writes housing rows.
func InsertRecords(t *testing.T, st *store.SQLiteStore, recs ...model.HousingRecord) {
	t.Helper()
	for _, r := range recs {
		_, err := st.DB().Exec(`INSERT INTO housing_stats (
			zip_code, county_name, state_abbr, state_name, metro_area, cbsa_code, cbsa_name,
			population, median_age, homeownership_rate, vacancy_rate,
			median_home_price, median_rent, median_household_income,
			owner_occupied_units, renter_occupied_units, total_housing_units,
			redfin_median_sale_price, redfin_median_list_price, redfin_homes_sold, redfin_median_days_on_market
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ZipCode, r.CountyName, r.StateAbbr, r.StateName, r.MetroArea, r.CBSACode, r.CBSAName,
			r.Population, r.MedianAge, r.HomeownershipRate, r.VacancyRate,
			r.MedianHomePrice, r.MedianRent, r.MedianHouseholdIncome,
			r.OwnerOccupiedUnits, r.RenterOccupiedUnits, r.TotalHousingUnits,
			r.RedfinMedianSalePrice, r.RedfinMedianListPrice, r.RedfinHomesSold, r.RedfinMedianDaysOnMarket,
		)
		require.NoError(t, err, "insert %s", r.ZipCode)
	}
}

// InsertCrosswalk writes crosswalk rows.
func InsertCrosswalk(t *testing.T, st *store.SQLiteStore, entries ...model.CrosswalkEntry) {
	t.Helper()
	for _, e := range entries {
		_, err := st.DB().Exec(`INSERT INTO hud_zip_county (zip_code, county_fips, pref_city, state_abbr, res_ratio, tot_ratio)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ZipCode, e.CountyFIPS, e.PrefCity, e.StateAbbr, e.ResRatio, e.TotRatio)
		require.NoError(t, err, "insert crosswalk %s/%s", e.ZipCode, e.CountyFIPS)
	}
}

// F returns a pointer to v.
func F(v float64) *float64 { return &v }

// I returns a pointer to v.
func I(v int64) *int64 { return &v }

// S returns a pointer to v.
func S(v string) *string { return &v }

// Records is a small Travis County, TX dataset plus one Vermont ZIP.
//
//	78701  full row, metro set
//	78702  full row, metro missing but CBSA name present
//	78703  no homeownership rate, so excluded from aggregates
//	05001  Vermont, no CBSA
func Records() []model.HousingRecord {
	return []model.HousingRecord{
		{
			ZipCode: "78701", CountyName: "Travis County", StateAbbr: "TX", StateName: "Texas",
			MetroArea: S("Austin-Round Rock-San Marcos, TX"), CBSACode: S("12420"), CBSAName: S("Austin-Round Rock-San Marcos, TX"),
			Population: I(10000), MedianAge: F(33.4), HomeownershipRate: F(30), VacancyRate: F(12.5),
			MedianHomePrice: F(500000), MedianRent: F(2000), MedianHouseholdIncome: F(100000),
			OwnerOccupiedUnits: I(1500), RenterOccupiedUnits: I(3500), TotalHousingUnits: I(5700),
			RedfinMedianSalePrice: F(610000),
		},
		{
			ZipCode: "78702", CountyName: "Travis County", StateAbbr: "TX", StateName: "Texas",
			CBSACode: S("12420"), CBSAName: S("Austin-Round Rock-San Marcos, TX"),
			Population: I(20000), MedianAge: F(31.6), HomeownershipRate: F(45), VacancyRate: F(7.5),
			MedianHomePrice: F(400000), MedianRent: F(1500), MedianHouseholdIncome: F(70000),
			OwnerOccupiedUnits: I(4000), RenterOccupiedUnits: I(5000), TotalHousingUnits: I(9800),
		},
		{
			ZipCode: "78703", CountyName: "Travis County", StateAbbr: "TX", StateName: "Texas",
			Population: I(500), MedianHomePrice: F(900000),
		},
		{
			ZipCode: "05001", CountyName: "Windsor County", StateAbbr: "VT", StateName: "Vermont",
			Population: I(12000), MedianAge: F(45), HomeownershipRate: F(70), VacancyRate: F(10),
			MedianHomePrice: F(250000), MedianRent: F(1000), MedianHouseholdIncome: F(60000),
		},
	}
}

// Crosswalk maps the Travis ZIPs to county 48453 along with:
//
//	78799  non-residential ZIP (res_ratio 0) in Travis
//	78798  residential ZIP without Census data, split between Travis
//	       (dominant) and Williamson (48491)
//	99950  residential ZIP in a county with no housing data
func Crosswalk() []model.CrosswalkEntry {
	return []model.CrosswalkEntry{
		{ZipCode: "78701", CountyFIPS: "48453", PrefCity: "AUSTIN", StateAbbr: "TX", ResRatio: 0.95, TotRatio: 1},
		{ZipCode: "78702", CountyFIPS: "48453", PrefCity: "AUSTIN", StateAbbr: "TX", ResRatio: 1, TotRatio: 1},
		{ZipCode: "78703", CountyFIPS: "48453", PrefCity: "AUSTIN", StateAbbr: "TX", ResRatio: 1, TotRatio: 1},
		{ZipCode: "78799", CountyFIPS: "48453", PrefCity: "AUSTIN", StateAbbr: "TX", ResRatio: 0, TotRatio: 1},
		{ZipCode: "78798", CountyFIPS: "48453", PrefCity: "AUSTIN", StateAbbr: "TX", ResRatio: 0.6, TotRatio: 0.7},
		{ZipCode: "78798", CountyFIPS: "48491", PrefCity: "AUSTIN", StateAbbr: "TX", ResRatio: 0.4, TotRatio: 0.3},
		{ZipCode: "99950", CountyFIPS: "02130", PrefCity: "KETCHIKAN", StateAbbr: "AK", ResRatio: 1, TotRatio: 1},
	}
}
