package api

import (
	"math"

	"github.com/sells-group/housing-research/internal/model"
)

// Presentation rounding: rates to 2 places, currency to whole units,
// ages to 1 place. Each helper returns fresh pointers so cached or
// shared values are never modified.

func roundTo(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	p := math.Pow(10, float64(places))
	r := math.Round(*v*p) / p
	return &r
}

func rate(v *float64) *float64     { return roundTo(v, 2) }
func currency(v *float64) *float64 { return roundTo(v, 0) }
func age(v *float64) *float64      { return roundTo(v, 1) }

func roundRecord(rec model.HousingRecord) model.HousingRecord {
	rec.MedianAge = age(rec.MedianAge)
	rec.HomeownershipRate = rate(rec.HomeownershipRate)
	rec.VacancyRate = rate(rec.VacancyRate)
	rec.MedianHomePrice = currency(rec.MedianHomePrice)
	rec.MedianRent = currency(rec.MedianRent)
	rec.MedianHouseholdIncome = currency(rec.MedianHouseholdIncome)
	rec.RedfinMedianSalePrice = currency(rec.RedfinMedianSalePrice)
	rec.RedfinMedianListPrice = currency(rec.RedfinMedianListPrice)
	rec.RedfinMedianDaysOnMarket = age(rec.RedfinMedianDaysOnMarket)
	return rec
}

func roundAggregate(agg model.CountyAggregate) model.CountyAggregate {
	agg.AvgHomeownershipRate = rate(agg.AvgHomeownershipRate)
	agg.AvgMedianHomePrice = currency(agg.AvgMedianHomePrice)
	agg.AvgMedianRent = currency(agg.AvgMedianRent)
	agg.AvgMedianHouseholdIncome = currency(agg.AvgMedianHouseholdIncome)
	agg.AvgMedianAge = age(agg.AvgMedianAge)
	agg.AvgVacancyRate = rate(agg.AvgVacancyRate)
	return agg
}

func roundAverages(a model.Averages) model.Averages {
	a.AvgHomeownershipRate = rate(a.AvgHomeownershipRate)
	a.AvgMedianHomePrice = currency(a.AvgMedianHomePrice)
	a.AvgMedianRent = currency(a.AvgMedianRent)
	a.AvgMedianHouseholdIncome = currency(a.AvgMedianHouseholdIncome)
	a.AvgMedianAge = age(a.AvgMedianAge)
	a.AvgVacancyRate = rate(a.AvgVacancyRate)
	return a
}

func roundComparison(n model.NationalComparison) model.NationalComparison {
	return model.NationalComparison{
		AvgHomeownershipRate:     rate(n.AvgHomeownershipRate),
		AvgMedianHomePrice:       currency(n.AvgMedianHomePrice),
		AvgMedianRent:            currency(n.AvgMedianRent),
		AvgMedianHouseholdIncome: currency(n.AvgMedianHouseholdIncome),
	}
}

func roundSummary(z model.ZipSummary) model.ZipSummary {
	z.HomeownershipRate = rate(z.HomeownershipRate)
	z.MedianHomePrice = currency(z.MedianHomePrice)
	z.MedianRent = currency(z.MedianRent)
	z.MedianHouseholdIncome = currency(z.MedianHouseholdIncome)
	return z
}
