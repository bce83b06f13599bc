// Package status serves the read-only heatcap status API over the journal.
//
//	GET /health       -> {"status":"ok"}
//	GET /status       -> latest run, latest market decision, shots per target
//	GET /days/{day}   -> shots per target and animations of one day
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/heatcap/heatcap/internal/journal"
	"github.com/hazyhaar/heatcap/heatcap/internal/layout"
)

// Reader is the read side of the journal.
type Reader interface {
	Status(ctx context.Context) (journal.Status, error)
	Day(ctx context.Context, day string) (journal.DayReport, error)
}

// Handler returns the status API router.
func Handler(rd Reader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(securityHeaders)
	r.Use(headToGet)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		st, err := rd.Status(r.Context())
		if err != nil {
			logger.Error("status: read status", "error", err)
			writeError(w, http.StatusInternalServerError, "journal unavailable")
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	r.Get("/days/{day}", func(w http.ResponseWriter, r *http.Request) {
		day := chi.URLParam(r, "day")
		if _, err := time.Parse(layout.DayFormat, day); err != nil {
			writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
		rep, err := rd.Day(r.Context(), day)
		if err != nil {
			logger.Error("status: read day", "day", day, "error", err)
			writeError(w, http.StatusInternalServerError, "journal unavailable")
			return
		}
		writeJSON(w, http.StatusOK, rep)
	})

	return r
}

// Server returns an http.Server for h with the usual timeouts.
func Server(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
