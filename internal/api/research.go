package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/housing-research/internal/geo"
	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/store"
)

type stateStats struct {
	StateAbbr string `json:"state_abbr"`
	model.Averages
}

type countyStats struct {
	model.CountyStats
	Comparison model.NationalComparison `json:"comparison"`
}

func (s *Server) handleStateStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	state := chi.URLParam(r, "state")
	if !geo.ValidStateAbbr(state) {
		writeError(w, http.StatusBadRequest, "Invalid state abbreviation")
		return
	}
	state = geo.NormalizeStateAbbr(state)

	avg, err := s.store.GlobalAverages(r.Context(), model.AverageFilter{StateAbbr: state})
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	if avg == nil || avg.ZipCount == 0 {
		writeError(w, http.StatusNotFound, "State not found")
		return
	}
	writeOK(w, stateStats{StateAbbr: state, Averages: roundAverages(*avg)}, meta(start))
}

func (s *Server) handleCountyStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	state := r.URL.Query().Get("state")
	if !geo.ValidStateAbbr(state) {
		writeError(w, http.StatusBadRequest, "Provide valid state abbreviation")
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "county"))
	if err != nil || geo.NormalizeName(name) == "" {
		writeError(w, http.StatusBadRequest, "Invalid county name")
		return
	}

	cs, err := s.store.CountyStats(r.Context(), geo.FoldName(name), geo.NormalizeStateAbbr(state))
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	if cs == nil {
		writeError(w, http.StatusNotFound, "County not found")
		return
	}

	national, err := s.national.Averages(r.Context())
	if err != nil {
		s.dbError(w, r, err)
		return
	}

	out := countyStats{CountyStats: *cs, Comparison: roundComparison(national)}
	out.CountyAggregate = roundAggregate(cs.CountyAggregate)
	writeOK(w, out, meta(start))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := geo.NormalizeName(r.URL.Query().Get("q"))
	if len([]rune(q)) < 2 {
		writeError(w, http.StatusBadRequest, "Query must be at least 2 characters")
		return
	}

	limit := s.cfg.Search.DefaultLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > s.cfg.Search.MaxLimit {
		limit = s.cfg.Search.MaxLimit
	}

	rows, err := s.store.Search(r.Context(), store.SearchQuery{Text: q, Limit: limit})
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	for i := range rows {
		rows[i] = roundSummary(rows[i])
	}

	m := meta(start)
	m["count"] = len(rows)
	writeOK(w, rows, m)
}

type compareRequest struct {
	ZipCodes []string `json:"zip_codes"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req compareRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.ZipCodes) < s.cfg.Compare.MinZips {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Provide at least %d zip_codes", s.cfg.Compare.MinZips))
		return
	}
	if len(req.ZipCodes) > s.cfg.Compare.MaxZips {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d ZIP codes", s.cfg.Compare.MaxZips))
		return
	}
	for _, z := range req.ZipCodes {
		if !geo.ValidZip(z) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid ZIP code: %s", z))
			return
		}
	}

	recs, err := s.store.LookupManyByZip(r.Context(), req.ZipCodes)
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	sortByPopulation(recs)
	for i := range recs {
		recs[i] = roundRecord(recs[i])
	}

	m := meta(start)
	m["count"] = len(recs)
	writeOK(w, recs, m)
}

// sortByPopulation orders records by population, largest first, with
// unknown populations last.
func sortByPopulation(recs []model.HousingRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i].Population, recs[j].Population
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

func (s *Server) handleQualityReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rep, err := s.store.QualityReport(r.Context())
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	writeOK(w, rep, meta(start))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	avg, err := s.store.GlobalAverages(r.Context(), model.AverageFilter{RequireHomeownership: true})
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	if avg == nil {
		avg = &model.Averages{}
	}
	writeOK(w, roundAverages(*avg), meta(start))
}

func (s *Server) handleListStates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	states, err := s.store.ListStates(r.Context())
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	for i := range states {
		states[i].AvgMedianHomePrice = currency(states[i].AvgMedianHomePrice)
		states[i].AvgHomeownershipRate = rate(states[i].AvgHomeownershipRate)
	}

	m := meta(start)
	m["count"] = len(states)
	writeOK(w, states, m)
}

// stateParam reads and validates the required ?state= parameter.
func stateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	state := r.URL.Query().Get("state")
	if !geo.ValidStateAbbr(state) {
		writeError(w, http.StatusBadRequest, "Provide valid state abbreviation")
		return "", false
	}
	return geo.NormalizeStateAbbr(state), true
}

func (s *Server) handleListCounties(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	state, ok := stateParam(w, r)
	if !ok {
		return
	}

	counties, err := s.store.ListCounties(r.Context(), state)
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	for i := range counties {
		c := &counties[i]
		c.AvgMedianHomePrice = currency(c.AvgMedianHomePrice)
		c.AvgHomeownershipRate = rate(c.AvgHomeownershipRate)
		c.AvgMedianRent = currency(c.AvgMedianRent)
		c.AvgMedianHouseholdIncome = currency(c.AvgMedianHouseholdIncome)
	}

	m := meta(start)
	m["count"] = len(counties)
	m["state"] = state
	writeOK(w, counties, m)
}

func (s *Server) handleListZips(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	state, ok := stateParam(w, r)
	if !ok {
		return
	}
	county := geo.NormalizeName(r.URL.Query().Get("county"))

	zips, err := s.store.ListZips(r.Context(), state, geo.FoldName(county), s.cfg.Search.ZipListLimit)
	if err != nil {
		s.dbError(w, r, err)
		return
	}
	for i := range zips {
		zips[i] = roundSummary(zips[i])
	}

	m := meta(start)
	m["count"] = len(zips)
	m["state"] = state
	if county != "" {
		m["county"] = county
	}
	writeOK(w, zips, m)
}
