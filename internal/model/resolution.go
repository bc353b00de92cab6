package model

import "encoding/json"

// ZipType categorizes a ZIP that has no direct housing record.
type ZipType string

const (
	ZipTypeMilitary                ZipType = "military"
	ZipTypeUSTerritory             ZipType = "us_territory"
	ZipTypeNonResidential          ZipType = "non_residential"
	ZipTypeResidentialNoCensus     ZipType = "residential_no_census"
	ZipTypeNonResidentialOrUnknown ZipType = "non_residential_or_unknown"
)

// ZipClassification explains why a ZIP lacks data. Suggestion is nil when
// there is nothing useful to try instead.
type ZipClassification struct {
	ZipType     ZipType `json:"zip_type"`
	Explanation string  `json:"explanation"`
	Suggestion  *string `json:"suggestion"`
}

// ResolutionStatus is the terminal state of a ZIP resolution.
type ResolutionStatus string

const (
	StatusFound          ResolutionStatus = "found"
	StatusCountyFallback ResolutionStatus = "county_fallback"
	StatusNotFound       ResolutionStatus = "not_found"
)

// RequestedZip describes the requested ZIP as the crosswalk knows it.
type RequestedZip struct {
	ZipCode          string  `json:"zip_code"`
	City             string  `json:"pref_city"`
	State            string  `json:"state_abbr"`
	CountyID         string  `json:"county_fips"`
	ResidentialRatio float64 `json:"res_ratio"`
}

// Sources names the dataset vintages behind a fallback answer.
type Sources struct {
	CensusVintage    string `json:"census"`
	CrosswalkVintage string `json:"hud_crosswalk"`
}

// Resolution is the outcome of resolving one ZIP. Exactly the fields that
// belong to Status are populated.
type Resolution struct {
	Status ResolutionStatus `json:"status"`

	// found
	Record   *HousingRecord      `json:"record,omitempty"`
	National *NationalComparison `json:"national_comparison,omitempty"`

	// county_fallback
	ZipType         ZipType          `json:"zip_type,omitempty"`
	Note            string           `json:"note,omitempty"`
	Requested       *RequestedZip    `json:"requested_zip,omitempty"`
	CountyAggregate *CountyAggregate `json:"county_aggregate,omitempty"`
	Sources         *Sources         `json:"sources,omitempty"`

	// not_found
	Classification *ZipClassification `json:"classification,omitempty"`
	SourcesChecked []string           `json:"sources_checked,omitempty"`
}

// MarshalJSON always writes county_aggregate for a county fallback, as
// null when no residential ZIP in the county had data.
func (r Resolution) MarshalJSON() ([]byte, error) {
	type plain Resolution
	if r.Status != StatusCountyFallback {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		CountyAggregate *CountyAggregate `json:"county_aggregate"`
	}{plain(r), r.CountyAggregate})
}
