// Package admin serves health, metrics and catalog listings over HTTP.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tuannm99/novaquery"
	"github.com/tuannm99/novaquery/internal/metrics"
)

// TableLister is the part of novaquery.DB the router needs.
type TableLister interface {
	Tables() ([]novaquery.TableMeta, error)
}

var _ TableLister = (*novaquery.DB)(nil)

func NewRouter(db TableLister, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/tables", func(w http.ResponseWriter, req *http.Request) {
		tables, err := db.Tables()
		if err != nil {
			log.Warn("admin: list tables", "err", err, "request_id", middleware.GetReqID(req.Context()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		if tables == nil {
			tables = []novaquery.TableMeta{}
		}
		writeJSON(w, http.StatusOK, tables)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
