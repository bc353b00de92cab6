package model

// StateSummary is one entry of the state listing.
type StateSummary struct {
	StateAbbr            string   `json:"state_abbr"`
	ZipCount             int      `json:"zip_count"`
	TotalPopulation      *int64   `json:"total_population"`
	AvgMedianHomePrice   *float64 `json:"avg_home_price"`
	AvgHomeownershipRate *float64 `json:"avg_homeownership"`
}

// CountySummary is one entry of the county listing for a state.
type CountySummary struct {
	CountyName               string   `json:"county_name"`
	ZipCount                 int      `json:"zip_count"`
	TotalPopulation          *int64   `json:"total_population"`
	AvgMedianHomePrice       *float64 `json:"avg_home_price"`
	AvgHomeownershipRate     *float64 `json:"avg_homeownership"`
	AvgMedianRent            *float64 `json:"avg_rent"`
	AvgMedianHouseholdIncome *float64 `json:"avg_income"`
}

// CountyStats is the county aggregate served by name lookup, with
// housing-unit totals on top of the averages.
type CountyStats struct {
	CountyAggregate
	MetroArea                *string `json:"metro_area"`
	TotalHousingUnits        *int64  `json:"total_units"`
	TotalOwnerOccupiedUnits  *int64  `json:"total_owner_units"`
	TotalRenterOccupiedUnits *int64  `json:"total_renter_units"`
}

// ZipSummary is a compact ZIP row used by search and listing endpoints.
type ZipSummary struct {
	ZipCode               string   `json:"zip_code"`
	CountyName            string   `json:"county_name"`
	StateAbbr             string   `json:"state_abbr"`
	MetroArea             *string  `json:"metro_area"`
	Population            *int64   `json:"population"`
	HomeownershipRate     *float64 `json:"homeownership_rate"`
	MedianHomePrice       *float64 `json:"median_home_price"`
	MedianRent            *float64 `json:"median_rent"`
	MedianHouseholdIncome *float64 `json:"median_household_income"`
}

// Quality status labels for field completeness.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// FieldCoverage reports how many rows carry a value for one field.
type FieldCoverage struct {
	Field           string  `json:"field"`
	Populated       int64   `json:"populated"`
	CompletenessPct float64 `json:"completeness_pct"`
	Status          string  `json:"status"`
}

// QualityReport is the per-field completeness report over the dataset.
type QualityReport struct {
	TotalRecords int64           `json:"total_records"`
	Fields       []FieldCoverage `json:"fields"`
}

// QualityStatus maps a completeness percentage to its label.
func QualityStatus(pct float64) string {
	switch {
	case pct >= 95:
		return QualityExcellent
	case pct >= 80:
		return QualityGood
	case pct >= 50:
		return QualityFair
	default:
		return QualityPoor
	}
}

// MetroCoverage describes how many rows carry CBSA and metro names.
type MetroCoverage struct {
	TotalZips      int64 `json:"total"`
	WithCBSA       int64 `json:"has_cbsa"`
	DistinctMetros int64 `json:"distinct_metros"`
	WithMetroArea  int64 `json:"has_metro_area"`
	// PendingSync counts rows the metro backfill would still update.
	PendingSync    int64 `json:"pending_sync"`
}
