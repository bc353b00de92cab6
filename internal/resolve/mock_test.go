package resolve

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/housing-research/internal/model"
)

// --- HousingStore Mock ---

type mockHousing struct {
	mock.Mock
}

func (m *mockHousing) LookupByZip(ctx context.Context, zip string) (*model.HousingRecord, error) {
	args := m.Called(ctx, zip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HousingRecord), args.Error(1)
}

func (m *mockHousing) LookupManyByZip(ctx context.Context, zips []string) ([]model.HousingRecord, error) {
	args := m.Called(ctx, zips)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HousingRecord), args.Error(1)
}

func (m *mockHousing) GlobalAverages(ctx context.Context, filter model.AverageFilter) (*model.Averages, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Averages), args.Error(1)
}

// --- Crosswalk Mock ---

type mockCrosswalk struct {
	mock.Mock
}

func (m *mockCrosswalk) EntriesForZip(ctx context.Context, zip string) ([]model.CrosswalkEntry, error) {
	args := m.Called(ctx, zip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CrosswalkEntry), args.Error(1)
}

func (m *mockCrosswalk) ZipsInCounty(ctx context.Context, countyFIPS string) ([]string, error) {
	args := m.Called(ctx, countyFIPS)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- In-memory fakes ---

// countingHousing serves fixed averages and counts GlobalAverages calls.
// When gate is non-nil each call blocks until it is closed.
type countingHousing struct {
	avg   model.Averages
	err   error
	gate  chan struct{}
	calls atomic.Int64
}

func (c *countingHousing) LookupByZip(context.Context, string) (*model.HousingRecord, error) {
	return nil, nil
}

func (c *countingHousing) LookupManyByZip(context.Context, []string) ([]model.HousingRecord, error) {
	return nil, nil
}

func (c *countingHousing) GlobalAverages(ctx context.Context, _ model.AverageFilter) (*model.Averages, error) {
	c.calls.Add(1)
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	a := c.avg
	return &a, nil
}

type resolutionEvent struct {
	status  model.ResolutionStatus
	zipType model.ZipType
}

// fakeRecorder captures Recorder and CacheRecorder calls.
type fakeRecorder struct {
	mu          sync.Mutex
	resolutions []resolutionEvent
	failures    []string
	hits        int
	misses      int
}

func (f *fakeRecorder) Resolution(status model.ResolutionStatus, zipType model.ZipType, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolutions = append(f.resolutions, resolutionEvent{status, zipType})
}

func (f *fakeRecorder) StoreFailure(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, step)
}

func (f *fakeRecorder) NationalCache(hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func fp(v float64) *float64 { return &v }
func ip(v int64) *int64     { return &v }
