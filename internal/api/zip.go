package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/resolve"
)

// zipStats is a found ZIP: the record fields plus the national comparison.
type zipStats struct {
	model.HousingRecord
	Comparison model.NationalComparison `json:"comparison"`
}

type countyData struct {
	model.CountyAggregate
	DataSource string `json:"data_source"`
}

type fallbackBody struct {
	ZipCode      string              `json:"zip_code"`
	ZipType      model.ZipType       `json:"zip_type"`
	Note         string              `json:"note"`
	RequestedZip *model.RequestedZip `json:"requested_zip"`
	CountyData   *countyData         `json:"county_data"`
}

type notFoundBody struct {
	Success        bool          `json:"success"`
	Error          string        `json:"error"`
	Code           int           `json:"code"`
	ZipCode        string        `json:"zip_code"`
	ZipType        model.ZipType `json:"zip_type"`
	Explanation    string        `json:"explanation"`
	Suggestion     *string       `json:"suggestion"`
	SourcesChecked []string      `json:"data_sources_checked"`
}

func (s *Server) handleZipStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	zip := strings.TrimSpace(chi.URLParam(r, "zip"))

	res, err := s.resolver.Resolve(r.Context(), zip)
	switch {
	case errors.Is(err, resolve.ErrInvalidZip):
		writeError(w, http.StatusBadRequest, "Invalid ZIP code format")
		return
	case err != nil:
		s.log.Error("api: resolve failed",
			zap.String("zip", zip),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusServiceUnavailable, "Data store unavailable")
		return
	}

	switch res.Status {
	case model.StatusFound:
		writeOK(w, zipStats{
			HousingRecord: roundRecord(*res.Record),
			Comparison:    roundComparison(*res.National),
		}, meta(start))

	case model.StatusCountyFallback:
		body := fallbackBody{
			ZipCode:      zip,
			ZipType:      res.ZipType,
			Note:         res.Note,
			RequestedZip: res.Requested,
		}
		if res.CountyAggregate != nil {
			body.CountyData = &countyData{
				CountyAggregate: roundAggregate(*res.CountyAggregate),
				DataSource:      s.cfg.Sources.AggregateSource,
			}
		}
		m := meta(start)
		if res.Sources != nil {
			m["hud_crosswalk"] = res.Sources.CrosswalkVintage
			m["census"] = res.Sources.CensusVintage
		}
		writeOK(w, body, m)

	default:
		c := res.Classification
		if c == nil {
			c = &model.ZipClassification{}
		}
		writeJSON(w, http.StatusNotFound, notFoundBody{
			Error:          fmt.Sprintf("No data found for ZIP code %s", zip),
			Code:           http.StatusNotFound,
			ZipCode:        zip,
			ZipType:        c.ZipType,
			Explanation:    c.Explanation,
			Suggestion:     c.Suggestion,
			SourcesChecked: res.SourcesChecked,
		})
	}
}
