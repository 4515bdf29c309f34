package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/sholl.report/internal/db"
	"github.com/banshee-data/sholl.report/internal/httputil"
	"github.com/banshee-data/sholl.report/internal/report"
	"github.com/banshee-data/sholl.report/internal/sholl"
	"github.com/banshee-data/sholl.report/internal/units"
)

// ProfileResponse is the JSON body of GET /api/profiles/{id}.
type ProfileResponse struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Unit      string         `json:"unit"`
	Profile   *sholl.Profile `json:"profile"`
	Summary   report.Summary `json:"summary"`
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 1000 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	list, err := s.store.List(r.URL.Query().Get("identifier"), limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, list)
}

func (s *Server) showProfile(w http.ResponseWriter, r *http.Request) {
	sp, unit, ok := s.loadConverted(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, ProfileResponse{
		ID:        sp.ID,
		CreatedAt: sp.CreatedAt,
		Unit:      unit,
		Profile:   sp.Profile,
		Summary:   report.Summarise(sp.Profile),
	})
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) showProfileChart(w http.ResponseWriter, r *http.Request) {
	sp, unit, ok := s.loadConverted(w, r)
	if !ok {
		return
	}
	if sp.Profile.Size() == 0 {
		httputil.Unprocessable(w, "Profile has no samples")
		return
	}

	var buf bytes.Buffer
	if err := report.RenderProfileChart(&buf, sp.Profile, report.ChartOptions{Unit: unit, AssetsHost: s.chartAssets}); err != nil {
		httputil.InternalServerError(w, "Failed to render chart", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) downloadProfileCSV(w http.ResponseWriter, r *http.Request) {
	sp, unit, ok := s.loadConverted(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteProfileCSV(&buf, sp.Profile, unit, unit); err != nil {
		httputil.InternalServerError(w, "Failed to write csv", err)
		return
	}
	name := sp.Profile.Identifier
	if name == "" {
		name = sp.ID
	}
	httputil.SetAttachment(w, "text/csv", name+"_sholl.csv")
	w.Write(buf.Bytes())
}

// loadConverted fetches the profile named in the path and rescales its
// radii, center and step into the requested output unit. On failure the
// error response has already been written.
func (s *Server) loadConverted(w http.ResponseWriter, r *http.Request) (*db.StoredProfile, string, bool) {
	out, ok := s.outputUnit(r)
	if !ok {
		httputil.BadRequest(w, "Invalid 'units' parameter (valid: "+units.GetValidUnitsString()+")")
		return nil, "", false
	}

	sp, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return nil, "", false
	}

	from := s.units
	if c := sp.Profile.Calibration; c != nil && c.Unit != "" {
		from = c.Unit
	}
	factor, err := units.ConvertLength(1, from, out)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, "", false
	}
	if factor != 1 {
		p := sp.Profile
		p.Center = p.Center.Scale(factor)
		p.StepSize *= factor
		for i := range p.Entries {
			p.Entries[i].Radius *= factor
		}
	}
	return sp, out, true
}
