package store

import (
	"math"
	"strings"

	"github.com/sells-group/housing-research/internal/geo"
	"github.com/sells-group/housing-research/internal/model"
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// housingColumns is the select list matching scanHousingRecord.
const housingColumns = `zip_code, COALESCE(county_name, ''), COALESCE(state_abbr, ''), COALESCE(state_name, ''),
	metro_area, cbsa_code, cbsa_name,
	population, median_age, homeownership_rate, vacancy_rate,
	median_home_price, median_rent, median_household_income,
	owner_occupied_units, renter_occupied_units, total_housing_units,
	redfin_median_sale_price, redfin_median_list_price, redfin_homes_sold, redfin_median_days_on_market`

func scanHousingRecord(row rowScanner) (*model.HousingRecord, error) {
	var r model.HousingRecord
	err := row.Scan(
		&r.ZipCode, &r.CountyName, &r.StateAbbr, &r.StateName,
		&r.MetroArea, &r.CBSACode, &r.CBSAName,
		&r.Population, &r.MedianAge, &r.HomeownershipRate, &r.VacancyRate,
		&r.MedianHomePrice, &r.MedianRent, &r.MedianHouseholdIncome,
		&r.OwnerOccupiedUnits, &r.RenterOccupiedUnits, &r.TotalHousingUnits,
		&r.RedfinMedianSalePrice, &r.RedfinMedianListPrice, &r.RedfinHomesSold, &r.RedfinMedianDaysOnMarket,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// zipSummaryColumns is the select list matching scanZipSummary.
const zipSummaryColumns = `zip_code, COALESCE(county_name, ''), COALESCE(state_abbr, ''), metro_area, population,
	homeownership_rate, median_home_price, median_rent, median_household_income`

func scanZipSummary(row rowScanner) (model.ZipSummary, error) {
	var z model.ZipSummary
	err := row.Scan(
		&z.ZipCode, &z.CountyName, &z.StateAbbr, &z.MetroArea, &z.Population,
		&z.HomeownershipRate, &z.MedianHomePrice, &z.MedianRent, &z.MedianHouseholdIncome,
	)
	return z, err
}

func scanCrosswalkEntry(row rowScanner) (model.CrosswalkEntry, error) {
	var e model.CrosswalkEntry
	err := row.Scan(&e.ZipCode, &e.CountyFIPS, &e.PrefCity, &e.StateAbbr, &e.ResRatio, &e.TotRatio)
	e.CountyFIPS = geo.NormalizeFIPSCounty(e.CountyFIPS)
	return e, err
}

// qualityFields lists the columns reported by QualityReport, in order.
// The redfin entry stands for the whole Redfin block.
var qualityFields = []struct {
	name   string
	column string
}{
	{"homeownership_rate", "homeownership_rate"},
	{"median_home_price", "median_home_price"},
	{"median_rent", "median_rent"},
	{"median_household_income", "median_household_income"},
	{"population", "population"},
	{"state_abbr", "state_abbr"},
	{"county_name", "county_name"},
	{"metro_area", "metro_area"},
	{"redfin_data", "redfin_median_sale_price"},
}

func qualitySelect() string {
	cols := make([]string, 0, len(qualityFields)+1)
	cols = append(cols, "COUNT(*)")
	for _, f := range qualityFields {
		cols = append(cols, "COUNT("+f.column+")")
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM housing_stats"
}

// buildQualityReport turns the row total and per-field populated counts
// into completeness percentages rounded to one decimal.
func buildQualityReport(total int64, populated []int64) *model.QualityReport {
	report := &model.QualityReport{TotalRecords: total}
	for i, f := range qualityFields {
		var pct float64
		if total > 0 {
			pct = math.Round(float64(populated[i])/float64(total)*1000) / 10
		}
		report.Fields = append(report.Fields, model.FieldCoverage{
			Field:           f.name,
			Populated:       populated[i],
			CompletenessPct: pct,
			Status:          model.QualityStatus(pct),
		})
	}
	return report
}

// likePattern escapes LIKE wildcards in user input. Callers add their own
// leading/trailing % and declare ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isNumeric(q string) bool {
	return geo.IsDigits(q)
}

// stateMatch returns the upper-cased query when it could be a state
// abbreviation, else nil so the state predicate matches nothing.
func stateMatch(q string) any {
	if !geo.ValidStateAbbr(q) {
		return nil
	}
	return geo.NormalizeStateAbbr(q)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
