package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/store"
	"github.com/sells-group/housing-research/internal/store/storetest"
)

func zipsOf(rows []model.ZipSummary) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ZipCode
	}
	return out
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := storetest.NewSQLite(t)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}

func TestSQLite_LookupByZip(t *testing.T) {
	st := storetest.NewSeeded(t)
	ctx := context.Background()

	rec, err := st.LookupByZip(ctx, "78701")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Travis County", rec.CountyName)
	assert.Equal(t, "TX", rec.StateAbbr)
	require.NotNil(t, rec.HomeownershipRate)
	assert.InDelta(t, 30.0, *rec.HomeownershipRate, 0.001)
	require.NotNil(t, rec.Population)
	assert.Equal(t, int64(10000), *rec.Population)
	assert.Nil(t, rec.RedfinHomesSold)
}

func TestSQLite_LookupByZip_Missing(t *testing.T) {
	st := storetest.NewSeeded(t)

	rec, err := st.LookupByZip(context.Background(), "00000")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLite_LookupByZip_NullFields(t *testing.T) {
	st := storetest.NewSeeded(t)

	rec, err := st.LookupByZip(context.Background(), "78703")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Nil(t, rec.HomeownershipRate)
	assert.Nil(t, rec.MetroArea)
	assert.Nil(t, rec.MedianRent)
}

func TestSQLite_LookupManyByZip(t *testing.T) {
	st := storetest.NewSeeded(t)
	ctx := context.Background()

	recs, err := st.LookupManyByZip(ctx, []string{"78702", "00000", "78701"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "78701", recs[0].ZipCode)
	assert.Equal(t, "78702", recs[1].ZipCode)

	recs, err = st.LookupManyByZip(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLite_GlobalAverages(t *testing.T) {
	st := storetest.NewSeeded(t)

	avg, err := st.GlobalAverages(context.Background(), model.AverageFilter{RequireHomeownership: true})
	require.NoError(t, err)
	assert.Equal(t, 3, avg.ZipCount)
	assert.Equal(t, 2, avg.StateCount)
	require.NotNil(t, avg.AvgHomeownershipRate)
	assert.InDelta(t, 48.333, *avg.AvgHomeownershipRate, 0.001)
	require.NotNil(t, avg.AvgMedianHomePrice)
	assert.InDelta(t, 383333.33, *avg.AvgMedianHomePrice, 0.01)
	require.NotNil(t, avg.AvgMedianRent)
	assert.InDelta(t, 1500.0, *avg.AvgMedianRent, 0.001)
	require.NotNil(t, avg.AvgMedianHouseholdIncome)
	assert.InDelta(t, 76666.67, *avg.AvgMedianHouseholdIncome, 0.01)
	require.NotNil(t, avg.TotalPopulation)
	assert.Equal(t, int64(42000), *avg.TotalPopulation)
	assert.Empty(t, avg.StateName)
}

func TestSQLite_GlobalAverages_State(t *testing.T) {
	st := storetest.NewSeeded(t)

	avg, err := st.GlobalAverages(context.Background(), model.AverageFilter{StateAbbr: "TX"})
	require.NoError(t, err)
	assert.Equal(t, 3, avg.ZipCount)
	assert.Equal(t, "Texas", avg.StateName)
	require.NotNil(t, avg.AvgMedianHomePrice)
	assert.InDelta(t, 600000.0, *avg.AvgMedianHomePrice, 0.001)
	require.NotNil(t, avg.AvgHomeownershipRate)
	assert.InDelta(t, 37.5, *avg.AvgHomeownershipRate, 0.001)
	assert.Equal(t, int64(30500), *avg.TotalPopulation)
}

func TestSQLite_GlobalAverages_Empty(t *testing.T) {
	st := storetest.NewSQLite(t)

	avg, err := st.GlobalAverages(context.Background(), model.AverageFilter{StateAbbr: "ZZ"})
	require.NoError(t, err)
	assert.Zero(t, avg.ZipCount)
	assert.Nil(t, avg.AvgHomeownershipRate)
	assert.Nil(t, avg.TotalPopulation)
}

func TestSQLite_EntriesForZip(t *testing.T) {
	st := storetest.NewSeeded(t)
	ctx := context.Background()

	entries, err := st.EntriesForZip(ctx, "78798")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "48453", entries[0].CountyFIPS)
	assert.InDelta(t, 0.7, entries[0].TotRatio, 0.0001)
	assert.InDelta(t, 0.6, entries[0].ResRatio, 0.0001)
	assert.Equal(t, "AUSTIN", entries[0].PrefCity)

	entries, err = st.EntriesForZip(ctx, "00000")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestSQLite_EntriesForZip_PadsNumericFIPS(t *testing.T) {
	st := storetest.NewSQLite(t)
	storetest.InsertCrosswalk(t, st, model.CrosswalkEntry{ZipCode: "36003", CountyFIPS: "1001", ResRatio: 1, TotRatio: 1})

	entries, err := st.EntriesForZip(context.Background(), "36003")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "01001", entries[0].CountyFIPS)
}

func TestSQLite_ZipsInCounty(t *testing.T) {
	st := storetest.NewSeeded(t)

	zips, err := st.ZipsInCounty(context.Background(), "48453")
	require.NoError(t, err)
	assert.Equal(t, []string{"78701", "78702", "78703", "78798"}, zips)

	zips, err = st.ZipsInCounty(context.Background(), "99999")
	require.NoError(t, err)
	assert.Empty(t, zips)
}

func TestSQLite_Search(t *testing.T) {
	st := storetest.NewSeeded(t)
	ctx := context.Background()

	tests := []struct {
		name string
		q    string
		want []string
	}{
		{"zip prefix", "787", []string{"78701", "78702", "78703"}},
		{"county substring", "travis", []string{"78701", "78702", "78703"}},
		{"metro substring", "round rock", []string{"78701"}},
		{"state abbreviation", "vt", []string{"05001"}},
		{"wildcards are literal", "%_", []string{}},
		{"no match", "nowhere", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := st.Search(ctx, store.SearchQuery{Text: tt.q, Limit: 20})
			require.NoError(t, err)
			assert.Equal(t, tt.want, zipsOf(rows))
		})
	}
}

func TestSQLite_Search_Limit(t *testing.T) {
	st := storetest.NewSeeded(t)

	rows, err := st.Search(context.Background(), store.SearchQuery{Text: "78", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"78701", "78702"}, zipsOf(rows))
}

func TestSQLite_ListByState(t *testing.T) {
	st := storetest.NewSeeded(t)

	recs, err := st.ListByState(context.Background(), "TX", 100)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "78701", recs[0].ZipCode)
}

func TestSQLite_ListStates(t *testing.T) {
	st := storetest.NewSeeded(t)

	states, err := st.ListStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "TX", states[0].StateAbbr)
	assert.Equal(t, 3, states[0].ZipCount)
	assert.Equal(t, int64(30500), *states[0].TotalPopulation)
	assert.Equal(t, "VT", states[1].StateAbbr)
}

func TestSQLite_ListCounties(t *testing.T) {
	st := storetest.NewSeeded(t)

	counties, err := st.ListCounties(context.Background(), "TX")
	require.NoError(t, err)
	require.Len(t, counties, 1)
	assert.Equal(t, "Travis County", counties[0].CountyName)
	assert.Equal(t, 3, counties[0].ZipCount)
	require.NotNil(t, counties[0].AvgMedianRent)
	assert.InDelta(t, 1750.0, *counties[0].AvgMedianRent, 0.001)
}

func TestSQLite_CountyStats(t *testing.T) {
	st := storetest.NewSeeded(t)
	ctx := context.Background()

	cs, err := st.CountyStats(ctx, "travis county", "TX")
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.Equal(t, "Travis County", cs.CountyName)
	assert.Equal(t, "Texas", cs.StateName)
	assert.Equal(t, 3, cs.ZipCount)
	require.NotNil(t, cs.TotalHousingUnits)
	assert.Equal(t, int64(15500), *cs.TotalHousingUnits)
	require.NotNil(t, cs.MetroArea)
	assert.Equal(t, "Austin-Round Rock-San Marcos, TX", *cs.MetroArea)

	cs, err = st.CountyStats(ctx, "Travis County", "VT")
	require.NoError(t, err)
	assert.Nil(t, cs)
}

func TestSQLite_ListZips(t *testing.T) {
	st := storetest.NewSeeded(t)
	ctx := context.Background()

	rows, err := st.ListZips(ctx, "TX", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"78702", "78701"}, zipsOf(rows))

	rows, err = st.ListZips(ctx, "TX", "TRAVIS COUNTY", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"78702", "78701", "78703"}, zipsOf(rows))
}

func TestSQLite_QualityReport(t *testing.T) {
	st := storetest.NewSeeded(t)

	report, err := st.QualityReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.TotalRecords)

	byField := map[string]model.FieldCoverage{}
	for _, f := range report.Fields {
		byField[f.Field] = f
	}
	require.Len(t, byField, 9)
	assert.InDelta(t, 75.0, byField["homeownership_rate"].CompletenessPct, 0.001)
	assert.Equal(t, model.QualityFair, byField["homeownership_rate"].Status)
	assert.Equal(t, model.QualityExcellent, byField["median_home_price"].Status)
	assert.Equal(t, model.QualityPoor, byField["metro_area"].Status)
	assert.InDelta(t, 25.0, byField["redfin_data"].CompletenessPct, 0.001)
}

func TestSQLite_QualityReport_Empty(t *testing.T) {
	st := storetest.NewSQLite(t)

	report, err := st.QualityReport(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TotalRecords)
	for _, f := range report.Fields {
		assert.Zero(t, f.CompletenessPct)
		assert.Equal(t, model.QualityPoor, f.Status)
	}
}

func TestSQLite_MetroSync(t *testing.T) {
	st := storetest.NewSeeded(t)
	ctx := context.Background()

	before, err := st.MetroCoverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.MetroCoverage{TotalZips: 4, WithCBSA: 2, DistinctMetros: 1, WithMetroArea: 1, PendingSync: 1}, *before)

	n, err := st.SyncMetroAreas(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec, err := st.LookupByZip(ctx, "78702")
	require.NoError(t, err)
	require.NotNil(t, rec.MetroArea)
	assert.Equal(t, "Austin-Round Rock-San Marcos, TX", *rec.MetroArea)

	after, err := st.MetroCoverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), after.WithMetroArea)
	assert.Zero(t, after.PendingSync)

	n, err = st.SyncMetroAreas(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_TopZips(t *testing.T) {
	st := storetest.NewSeeded(t)
	ctx := context.Background()

	metro, err := st.TopZips(ctx, true, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"78702", "78701"}, zipsOf(metro))

	rural, err := st.TopZips(ctx, false, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"05001", "78703"}, zipsOf(rural))
}
