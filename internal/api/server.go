// Package api serves the comparison results over HTTP: stored model and point
// set inventories, recorded runs, and the confusion matrix heatmaps.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/domain.report/internal/httputil"
	"github.com/banshee-data/domain.report/internal/modelstore"
	"github.com/banshee-data/domain.report/internal/report"
)

// ANSI escape codes for request log colouring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const defaultRunLimit = 50

type Server struct {
	store  *modelstore.Store
	full   *report.ConfusionMatrix
	folded *report.ConfusionMatrix
	title  string
}

func NewServer(store *modelstore.Store, full, folded *report.ConfusionMatrix, title string) *Server {
	return &Server{
		store:  store,
		full:   full,
		folded: folded,
		title:  title,
	}
}

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
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/matrix", report.HeatmapHandler(s.folded, s.title))
	mux.Handle("/matrix/full", report.HeatmapHandler(s.full, s.title))
	mux.HandleFunc("/api/models", s.listModels)
	mux.HandleFunc("/api/points", s.listPointSets)
	mux.HandleFunc("/api/runs", s.showRuns)
	return mux
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	names, err := s.store.ListBlockModels()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string][]string{"models": names})
}

func (s *Server) listPointSets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	names, err := s.store.ListPointSets()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string][]string{"point_sets": names})
}

// showRuns serves a single run when ?id= is given, otherwise the most recent
// runs (up to ?limit=, default 50).
func (s *Server) showRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		run, err := s.store.LoadRun(id)
		if err != nil {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, run)
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"runs": runs})
}
