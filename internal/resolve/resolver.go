package resolve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/housing-research/internal/geo"
	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/store"
)

// Recorder observes finished resolutions and failed store steps.
type Recorder interface {
	Resolution(status model.ResolutionStatus, zipType model.ZipType, elapsed time.Duration)
	StoreFailure(step string)
}

// Options carries provenance strings and optional instrumentation.
type Options struct {
	CensusVintage    string
	CrosswalkVintage string
	// SourcesChecked is reported on not_found answers.
	SourcesChecked []string
	Recorder       Recorder
}

// Resolver answers a ZIP with its housing record, a county-level fallback,
// or a classification of why no data exists. It holds no mutable state of
// its own and is safe for concurrent use.
type Resolver struct {
	housing    store.HousingStore
	crosswalk  store.Crosswalk
	aggregator *Aggregator
	national   *NationalComparator
	opts       Options
	log        *zap.Logger
}

// NewResolver wires a Resolver. national may be shared with other callers.
func NewResolver(h store.HousingStore, c store.Crosswalk, national *NationalComparator, opts Options) *Resolver {
	return &Resolver{
		housing:    h,
		crosswalk:  c,
		aggregator: NewAggregator(h),
		national:   national,
		opts:       opts,
		log:        zap.L().With(zap.String("component", "resolver")),
	}
}

// Resolve runs PrimaryLookup, then CrosswalkLookup, then either
// CountyFallback or Unclassified. Store failures come back as *StepError;
// a ZIP absent from both datasets is a not_found Resolution, not an error.
func (r *Resolver) Resolve(ctx context.Context, zip string) (*model.Resolution, error) {
	if !geo.ValidZip(zip) {
		return nil, ErrInvalidZip
	}

	start := time.Now()
	res, err := r.resolve(ctx, zip)
	elapsed := time.Since(start)

	if err != nil {
		step, _ := FailedStep(err)
		r.log.Warn("resolve: store failure",
			zap.String("zip", zip),
			zap.String("step", string(step)),
			zap.Error(err),
		)
		if r.opts.Recorder != nil {
			r.opts.Recorder.StoreFailure(string(step))
		}
		return nil, err
	}

	r.log.Debug("resolve: done",
		zap.String("zip", zip),
		zap.String("status", string(res.Status)),
		zap.String("zip_type", string(zipTypeOf(res))),
		zap.Duration("elapsed", elapsed),
	)
	if r.opts.Recorder != nil {
		r.opts.Recorder.Resolution(res.Status, zipTypeOf(res), elapsed)
	}
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, zip string) (*model.Resolution, error) {
	res, err := r.primaryLookup(ctx, zip)
	if err != nil || res != nil {
		return res, err
	}

	dominant, err := r.crosswalkLookup(ctx, zip)
	if err != nil {
		return nil, err
	}
	if dominant == nil {
		return r.unclassified(zip), nil
	}
	return r.countyFallback(ctx, zip, *dominant)
}

// primaryLookup returns a found Resolution, or nil to continue.
func (r *Resolver) primaryLookup(ctx context.Context, zip string) (*model.Resolution, error) {
	rec, err := r.housing.LookupByZip(ctx, zip)
	if err != nil {
		return nil, &StepError{Step: StepPrimaryLookup, Zip: zip, Err: err}
	}
	if rec == nil {
		return nil, nil
	}

	national, err := r.national.Averages(ctx)
	if err != nil {
		return nil, &StepError{Step: StepNationalAverages, Zip: zip, Err: err}
	}
	return &model.Resolution{
		Status:   model.StatusFound,
		Record:   rec,
		National: &national,
	}, nil
}

// crosswalkLookup returns the dominant crosswalk entry, or nil when the ZIP
// is not in the crosswalk.
func (r *Resolver) crosswalkLookup(ctx context.Context, zip string) (*model.CrosswalkEntry, error) {
	entries, err := r.crosswalk.EntriesForZip(ctx, zip)
	if err != nil {
		return nil, &StepError{Step: StepCrosswalkLookup, Zip: zip, Err: err}
	}
	return dominantEntry(entries), nil
}

// dominantEntry picks the entry with the largest tot_ratio. The first of
// equal entries wins.
func dominantEntry(entries []model.CrosswalkEntry) *model.CrosswalkEntry {
	if len(entries) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].TotRatio > entries[best].TotRatio {
			best = i
		}
	}
	e := entries[best]
	return &e
}

func (r *Resolver) countyFallback(ctx context.Context, zip string, dominant model.CrosswalkEntry) (*model.Resolution, error) {
	county := dominant.CountyFIPS
	zips, err := r.crosswalk.ZipsInCounty(ctx, county)
	if err != nil {
		return nil, &StepError{Step: StepCountyZips, Zip: zip, CountyFIPS: county, Err: err}
	}
	agg, err := r.aggregator.Aggregate(ctx, county, zips)
	if err != nil {
		return nil, &StepError{Step: StepCountyAggregate, Zip: zip, CountyFIPS: county, Err: err}
	}

	zipType := model.ZipTypeResidentialNoCensus
	if dominant.ResRatio == 0 {
		zipType = model.ZipTypeNonResidential
	}

	return &model.Resolution{
		Status:  model.StatusCountyFallback,
		ZipType: zipType,
		Note:    fallbackNote(zip, dominant, zipType, agg),
		Requested: &model.RequestedZip{
			ZipCode:          zip,
			City:             dominant.PrefCity,
			State:            dominant.StateAbbr,
			CountyID:         county,
			ResidentialRatio: dominant.ResRatio,
		},
		CountyAggregate: agg,
		Sources: &model.Sources{
			CensusVintage:    r.opts.CensusVintage,
			CrosswalkVintage: r.opts.CrosswalkVintage,
		},
	}, nil
}

func fallbackNote(zip string, e model.CrosswalkEntry, zipType model.ZipType, agg *model.CountyAggregate) string {
	countyName := "county"
	if agg != nil && agg.CountyName != "" {
		countyName = agg.CountyName
	}
	if zipType == model.ZipTypeNonResidential {
		return fmt.Sprintf("ZIP %s (%s, %s) has no residential addresses — showing %s county-level data instead.",
			zip, e.PrefCity, e.StateAbbr, countyName)
	}
	return fmt.Sprintf("ZIP %s (%s, %s) exists but has no Census ZCTA data — showing %s county-level data instead.",
		zip, e.PrefCity, e.StateAbbr, countyName)
}

func (r *Resolver) unclassified(zip string) *model.Resolution {
	c := geo.ClassifyZip(zip)
	checked := make([]string, len(r.opts.SourcesChecked))
	copy(checked, r.opts.SourcesChecked)
	return &model.Resolution{
		Status:         model.StatusNotFound,
		Classification: &c,
		SourcesChecked: checked,
	}
}

func zipTypeOf(res *model.Resolution) model.ZipType {
	if res.Classification != nil {
		return res.Classification.ZipType
	}
	return res.ZipType
}
