package model

// HousingRecord is one row of ZIP-level housing and demographic statistics.
// Nil pointers mean the source publishes no value for that field.
type HousingRecord struct {
	ZipCode    string  `json:"zip_code" csv:"zip_code"`
	CountyName string  `json:"county_name" csv:"county_name"`
	StateAbbr  string  `json:"state_abbr" csv:"state_abbr"`
	StateName  string  `json:"state_name" csv:"state_name"`
	MetroArea  *string `json:"metro_area" csv:"metro_area,omitempty"`
	CBSACode   *string `json:"cbsa_code" csv:"cbsa_code,omitempty"`
	CBSAName   *string `json:"cbsa_name" csv:"cbsa_name,omitempty"`

	Population            *int64   `json:"population" csv:"population,omitempty"`
	MedianAge             *float64 `json:"median_age" csv:"median_age,omitempty"`
	HomeownershipRate     *float64 `json:"homeownership_rate" csv:"homeownership_rate,omitempty"`
	VacancyRate           *float64 `json:"vacancy_rate" csv:"vacancy_rate,omitempty"`
	MedianHomePrice       *float64 `json:"median_home_price" csv:"median_home_price,omitempty"`
	MedianRent            *float64 `json:"median_rent" csv:"median_rent,omitempty"`
	MedianHouseholdIncome *float64 `json:"median_household_income" csv:"median_household_income,omitempty"`
	OwnerOccupiedUnits    *int64   `json:"owner_occupied_units" csv:"owner_occupied_units,omitempty"`
	RenterOccupiedUnits   *int64   `json:"renter_occupied_units" csv:"renter_occupied_units,omitempty"`
	TotalHousingUnits     *int64   `json:"total_housing_units" csv:"total_housing_units,omitempty"`

	RedfinMedianSalePrice    *float64 `json:"redfin_median_sale_price" csv:"redfin_median_sale_price,omitempty"`
	RedfinMedianListPrice    *float64 `json:"redfin_median_list_price" csv:"redfin_median_list_price,omitempty"`
	RedfinHomesSold          *int64   `json:"redfin_homes_sold" csv:"redfin_homes_sold,omitempty"`
	RedfinMedianDaysOnMarket *float64 `json:"redfin_median_days_on_market" csv:"redfin_median_days_on_market,omitempty"`
}

// CrosswalkEntry maps a USPS ZIP to one county it overlaps. A ZIP may
// appear in several entries, one per county.
type CrosswalkEntry struct {
	ZipCode    string  `json:"zip_code"`
	CountyFIPS string  `json:"county_fips"`
	PrefCity   string  `json:"pref_city"`
	StateAbbr  string  `json:"state_abbr"`
	ResRatio   float64 `json:"res_ratio"`
	TotRatio   float64 `json:"tot_ratio"`
}

// CountyAggregate summarizes the residential ZIPs of a county. Averages
// are unrounded; nil means no contributing ZIP had a value.
type CountyAggregate struct {
	CountyFIPS               string   `json:"county_fips,omitempty"`
	CountyName               string   `json:"county_name"`
	StateName                string   `json:"state_name"`
	StateAbbr                string   `json:"state_abbr"`
	ZipCount                 int      `json:"zip_count"`
	TotalPopulation          *int64   `json:"total_population"`
	AvgHomeownershipRate     *float64 `json:"avg_homeownership_rate"`
	AvgMedianHomePrice       *float64 `json:"avg_median_home_price"`
	AvgMedianRent            *float64 `json:"avg_median_rent"`
	AvgMedianHouseholdIncome *float64 `json:"avg_median_household_income"`
	AvgMedianAge             *float64 `json:"avg_median_age"`
	AvgVacancyRate           *float64 `json:"avg_vacancy_rate"`
}

// AverageFilter narrows the rows that GlobalAverages considers.
type AverageFilter struct {
	RequireHomeownership bool
	StateAbbr            string
}

// Averages is the result of a dataset-wide or state-wide average query.
type Averages struct {
	ZipCount                 int      `json:"zip_count"`
	StateCount               int      `json:"state_count,omitempty"`
	StateName                string   `json:"state_name,omitempty"`
	TotalPopulation          *int64   `json:"total_population"`
	AvgHomeownershipRate     *float64 `json:"avg_homeownership_rate"`
	AvgMedianHomePrice       *float64 `json:"avg_median_home_price"`
	AvgMedianRent            *float64 `json:"avg_median_rent"`
	AvgMedianHouseholdIncome *float64 `json:"avg_median_household_income"`
	AvgMedianAge             *float64 `json:"avg_median_age"`
	AvgVacancyRate           *float64 `json:"avg_vacancy_rate"`
}

// NationalComparison holds the national reference averages attached to a
// found resolution.
type NationalComparison struct {
	AvgHomeownershipRate     *float64 `json:"national_avg_homeownership"`
	AvgMedianHomePrice       *float64 `json:"national_avg_home_price"`
	AvgMedianRent            *float64 `json:"national_avg_rent"`
	AvgMedianHouseholdIncome *float64 `json:"national_avg_income"`
}
