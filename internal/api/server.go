// Package api serves stored Sholl profiles over HTTP as JSON, CSV and
// interactive charts.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/sholl.report/internal/db"
	"github.com/banshee-data/sholl.report/internal/httputil"
	"github.com/banshee-data/sholl.report/internal/monitoring"
	"github.com/banshee-data/sholl.report/internal/units"
	"github.com/banshee-data/sholl.report/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// ProfileStore is the subset of db.ProfileStore the server needs.
type ProfileStore interface {
	Get(id string) (*db.StoredProfile, error)
	List(identifier string, limit int) ([]db.ProfileSummary, error)
	Delete(id string) error
}

type Server struct {
	store ProfileStore
	// units is the length unit assumed for profiles stored without a
	// calibration, and the default output unit.
	units string
	// chartAssets overrides the echarts asset host for chart pages.
	chartAssets string
}

func NewServer(store ProfileStore, units string) *Server {
	return &Server{store: store, units: units}
}

// SetChartAssetsHost makes chart pages load echarts from host.
func (s *Server) SetChartAssetsHost(host string) { s.chartAssets = host }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/profiles", s.listProfiles)
	mux.HandleFunc("GET /api/profiles/{id}", s.showProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", s.deleteProfile)
	mux.HandleFunc("GET /api/profiles/{id}/chart", s.showProfileChart)
	mux.HandleFunc("GET /api/profiles/{id}/csv", s.downloadProfileCSV)
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("GET /api/version", s.showVersion)
	return mux
}

// storeError maps a store failure onto a status code.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrProfileNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, "Failed to read profile store", err)
}

// outputUnit returns the unit requested by ?units=, or the server default.
func (s *Server) outputUnit(r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, true
	}
	return units.Normalise(u)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]any{
		"units":       s.units,
		"valid_units": units.ValidUnits,
	})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Current())
}
