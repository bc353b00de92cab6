package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/store"
)

// CacheRecorder observes national-average cache lookups.
type CacheRecorder interface {
	NationalCache(hit bool)
}

// NationalComparator computes national averages over ZIPs with homeownership
// data. With a positive TTL the result is cached and concurrent refreshes
// share a single store query. The shared query is detached from every
// caller's cancellation and bounded by its own timeout instead. It is safe
// for concurrent use.
type NationalComparator struct {
	housing        store.HousingStore
	ttl            time.Duration
	refreshTimeout time.Duration
	clock          clockwork.Clock
	recorder       CacheRecorder
	group          singleflight.Group

	mu      sync.Mutex
	cached  *model.NationalComparison
	expires time.Time
}

// NationalOption configures a NationalComparator.
type NationalOption func(*NationalComparator)

// WithClock sets the clock used for cache expiry.
func WithClock(c clockwork.Clock) NationalOption {
	return func(n *NationalComparator) {
		n.clock = c
	}
}

// WithCacheRecorder reports cache hits and misses to r.
func WithCacheRecorder(r CacheRecorder) NationalOption {
	return func(n *NationalComparator) {
		n.recorder = r
	}
}

// WithRefreshTimeout bounds a shared cache refresh. Zero leaves it
// unbounded.
func WithRefreshTimeout(d time.Duration) NationalOption {
	return func(n *NationalComparator) {
		n.refreshTimeout = d
	}
}

// NewNationalComparator creates a comparator. A ttl of zero or less
// recomputes on every call.
func NewNationalComparator(h store.HousingStore, ttl time.Duration, opts ...NationalOption) *NationalComparator {
	n := &NationalComparator{
		housing: h,
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Averages returns the national comparison figures.
func (n *NationalComparator) Averages(ctx context.Context) (model.NationalComparison, error) {
	if n.ttl <= 0 {
		n.observe(false)
		return n.compute(ctx)
	}

	if v, ok := n.fresh(); ok {
		n.observe(true)
		return v, nil
	}
	n.observe(false)

	ch := n.group.DoChan("national", func() (any, error) {
		// A refresh may have finished between the check above and DoChan.
		if v, ok := n.fresh(); ok {
			return v, nil
		}
		rctx := context.WithoutCancel(ctx)
		if n.refreshTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(rctx, n.refreshTimeout)
			defer cancel()
		}
		nc, err := n.compute(rctx)
		if err != nil {
			return nil, err
		}
		n.mu.Lock()
		n.cached = &nc
		n.expires = n.clock.Now().Add(n.ttl)
		n.mu.Unlock()
		return nc, nil
	})

	select {
	case <-ctx.Done():
		return model.NationalComparison{}, eris.Wrap(ctx.Err(), "resolve: national averages")
	case res := <-ch:
		if res.Err != nil {
			return model.NationalComparison{}, res.Err
		}
		return res.Val.(model.NationalComparison), nil
	}
}

func (n *NationalComparator) fresh() (model.NationalComparison, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cached == nil || !n.clock.Now().Before(n.expires) {
		return model.NationalComparison{}, false
	}
	return *n.cached, true
}

// Invalidate drops the cached value so the next call recomputes it.
func (n *NationalComparator) Invalidate() {
	n.mu.Lock()
	n.cached = nil
	n.mu.Unlock()
}

func (n *NationalComparator) observe(hit bool) {
	if n.recorder != nil {
		n.recorder.NationalCache(hit)
	}
}

func (n *NationalComparator) compute(ctx context.Context) (model.NationalComparison, error) {
	avg, err := n.housing.GlobalAverages(ctx, model.AverageFilter{RequireHomeownership: true})
	if err != nil {
		return model.NationalComparison{}, eris.Wrap(err, "resolve: national averages")
	}
	return model.NationalComparison{
		AvgHomeownershipRate:     avg.AvgHomeownershipRate,
		AvgMedianHomePrice:       avg.AvgMedianHomePrice,
		AvgMedianRent:            avg.AvgMedianRent,
		AvgMedianHouseholdIncome: avg.AvgMedianHouseholdIncome,
	}, nil
}
