package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/housing-research/internal/geo"
	"github.com/sells-group/housing-research/internal/model"
)

// maxStateExportRows is above the ZCTA count of any state.
const maxStateExportRows = 10000

// textColumns stay strings in workbooks so leading zeros survive.
var textColumns = map[string]bool{
	"zip_code":  true,
	"cbsa_code": true,
}

// exportRecords loads the rows selected by ?zip_codes= or ?state= and
// writes the error response itself when it returns false.
func (s *Server) exportRecords(w http.ResponseWriter, r *http.Request) ([]model.HousingRecord, bool) {
	q := r.URL.Query()

	var (
		recs []model.HousingRecord
		err  error
	)
	switch {
	case q.Get("zip_codes") != "":
		zips := splitZips(q.Get("zip_codes"), s.cfg.Export.MaxZips)
		recs, err = s.store.LookupManyByZip(r.Context(), zips)
	case q.Get("state") != "":
		state := q.Get("state")
		if !geo.ValidStateAbbr(state) {
			writeError(w, http.StatusBadRequest, "Invalid state abbreviation")
			return nil, false
		}
		recs, err = s.store.ListByState(r.Context(), geo.NormalizeStateAbbr(state), maxStateExportRows)
	default:
		writeError(w, http.StatusBadRequest, "Provide zip_codes or state parameter")
		return nil, false
	}
	if err != nil {
		s.dbError(w, r, err)
		return nil, false
	}
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, "No data found")
		return nil, false
	}
	return recs, true
}

// splitZips parses a comma-separated ZIP list, dropping blanks and
// duplicates and keeping at most limit entries.
func splitZips(raw string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, z := range strings.Split(raw, ",") {
		z = strings.TrimSpace(z)
		if z == "" || seen[z] {
			continue
		}
		seen[z] = true
		out = append(out, z)
		if len(out) == limit {
			break
		}
	}
	return out
}

func attachment(w http.ResponseWriter, contentType, ext string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=housing-stats-%d.%s", time.Now().UnixMilli(), ext))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.exportRecords(w, r)
	if !ok {
		return
	}

	data, err := csvutil.Marshal(recs)
	if err != nil {
		s.log.Error("api: encode csv", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	attachment(w, "text/csv", "csv")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	recs, ok := s.exportRecords(w, r)
	if !ok {
		return
	}

	file, err := buildWorkbook(recs)
	if err != nil {
		s.log.Error("api: build workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		s.log.Error("api: write workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// buildWorkbook lays the records out with the same columns as the CSV
// export. Numeric values become numeric cells.
func buildWorkbook(recs []model.HousingRecord) (*xlsx.File, error) {
	data, err := csvutil.Marshal(recs)
	if err != nil {
		return nil, eris.Wrap(err, "api: encode rows")
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "api: decode rows")
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("housing_stats")
	if err != nil {
		return nil, eris.Wrap(err, "api: add sheet")
	}

	header := rows[0]
	for i, values := range rows {
		row := sheet.AddRow()
		for j, v := range values {
			cell := row.AddCell()
			if i == 0 || textColumns[header[j]] || v == "" {
				cell.SetString(v)
				continue
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				cell.SetFloat(f)
				continue
			}
			cell.SetString(v)
		}
	}
	return file, nil
}
