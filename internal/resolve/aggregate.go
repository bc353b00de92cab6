// Package resolve answers ZIP lookups, falling back to county-level
// aggregates built from the postal crosswalk when a ZIP has no housing record.
package resolve

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/store"
)

// Aggregator averages housing records across a set of ZIPs.
type Aggregator struct {
	housing store.HousingStore
}

// NewAggregator creates an Aggregator reading from h.
func NewAggregator(h store.HousingStore) *Aggregator {
	return &Aggregator{housing: h}
}

// Aggregate builds a county estimate from the records of zips that carry a
// homeownership rate. It returns nil, nil when zips is empty or no record
// qualifies. Values are unrounded.
func (a *Aggregator) Aggregate(ctx context.Context, countyFIPS string, zips []string) (*model.CountyAggregate, error) {
	if len(zips) == 0 {
		return nil, nil
	}
	recs, err := a.housing.LookupManyByZip(ctx, zips)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: aggregate county %s", countyFIPS)
	}
	return aggregateRecords(countyFIPS, recs), nil
}

// mean accumulates a null-excluding arithmetic mean.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

func maxString(cur, v string) string {
	if v > cur {
		return v
	}
	return cur
}

func aggregateRecords(countyFIPS string, recs []model.HousingRecord) *model.CountyAggregate {
	var homeownership, price, rent, income, age, vacancy mean
	var population int64
	var havePopulation bool
	seen := make(map[string]struct{}, len(recs))
	agg := &model.CountyAggregate{CountyFIPS: countyFIPS}

	for i := range recs {
		r := &recs[i]
		if r.HomeownershipRate == nil {
			continue
		}
		if _, dup := seen[r.ZipCode]; dup {
			continue
		}
		seen[r.ZipCode] = struct{}{}

		homeownership.add(r.HomeownershipRate)
		price.add(r.MedianHomePrice)
		rent.add(r.MedianRent)
		income.add(r.MedianHouseholdIncome)
		age.add(r.MedianAge)
		vacancy.add(r.VacancyRate)
		if r.Population != nil {
			population += *r.Population
			havePopulation = true
		}
		agg.CountyName = maxString(agg.CountyName, r.CountyName)
		agg.StateName = maxString(agg.StateName, r.StateName)
		agg.StateAbbr = maxString(agg.StateAbbr, r.StateAbbr)
	}
	if len(seen) == 0 {
		return nil
	}

	agg.ZipCount = len(seen)
	if havePopulation {
		agg.TotalPopulation = &population
	}
	agg.AvgHomeownershipRate = homeownership.value()
	agg.AvgMedianHomePrice = price.value()
	agg.AvgMedianRent = rent.value()
	agg.AvgMedianHouseholdIncome = income.value()
	agg.AvgMedianAge = age.value()
	agg.AvgVacancyRate = vacancy.value()
	return agg
}
