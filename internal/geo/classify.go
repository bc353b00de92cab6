// Package geo classifies and normalizes US postal geography identifiers.
package geo

import (
	"strconv"
	"strings"

	"github.com/sells-group/housing-research/internal/model"
)

// zipRange is a closed interval of ZIP codes compared as integers, so
// "00801" is 801.
type zipRange struct {
	lo, hi int
}

func (r zipRange) contains(z int) bool {
	return z >= r.lo && z <= r.hi
}

type zipRule struct {
	ranges         []zipRange
	classification model.ZipClassification
}

const (
	militaryExplanation = "Military APO/FPO/DPO ZIP — routes mail to overseas military bases. " +
		"Census has no residential data for these addresses."
	territoryExplanation = "US Territory ZIP (Guam, USVI, or American Samoa). " +
		"Census ACS does not publish ZIP-level data for these territories."
	unknownExplanation = "This ZIP code has no Census residential data. " +
		"Common reasons: (1) PO Box-only ZIP — no one lives there; " +
		"(2) Unique-institution ZIP assigned to a single organization (hospital, university, government building); " +
		"(3) ZIP assigned after January 2020 not yet in Census 5-Year ACS data. " +
		"None of these categories have homeownership, income, or rent data available from any public source."
	unknownSuggestion = "Try a nearby residential ZIP code, or use the /search endpoint to find ZIPs by city or county name."
)

// zipRules are evaluated in order; the first matching rule wins.
// Puerto Rico has ACS ZCTA data and is not listed.
var zipRules = []zipRule{
	{
		ranges: []zipRange{
			{9000, 9499},   // APO AE
			{34000, 34099}, // APO AA
			{96200, 96699}, // APO/FPO AP
		},
		classification: model.ZipClassification{
			ZipType:     model.ZipTypeMilitary,
			Explanation: militaryExplanation,
		},
	},
	{
		ranges: []zipRange{
			{96799, 96799}, // American Samoa
			{96910, 96932}, // Guam
			{801, 851},     // US Virgin Islands
		},
		classification: model.ZipClassification{
			ZipType:     model.ZipTypeUSTerritory,
			Explanation: territoryExplanation,
		},
	},
}

// ClassifyZip explains why a ZIP has neither a housing record nor a
// crosswalk entry. It never fails: input that matches no rule, including
// non-numeric input, is non_residential_or_unknown.
func ClassifyZip(zip string) model.ZipClassification {
	z, err := strconv.Atoi(strings.TrimSpace(zip))
	if err == nil {
		for _, rule := range zipRules {
			for _, r := range rule.ranges {
				if r.contains(z) {
					return rule.classification
				}
			}
		}
	}

	suggestion := unknownSuggestion
	return model.ZipClassification{
		ZipType:     model.ZipTypeNonResidentialOrUnknown,
		Explanation: unknownExplanation,
		Suggestion:  &suggestion,
	}
}
