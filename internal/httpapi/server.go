// Package httpapi exposes the calendar feed and the operational endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fitbarca/reminders/internal/dispatch"
	"github.com/fitbarca/reminders/internal/domain"
	"github.com/fitbarca/reminders/internal/ics"
	"github.com/fitbarca/reminders/internal/store"
)

const feedFilename = "fitbarca-schedule.ics"

// Runner is the minimal interface the dispatch endpoint needs to trigger a
// scan. dispatch.Dispatcher implements this (method: Run).
type Runner interface {
	Run(ctx context.Context, now time.Time) dispatch.Summary
}

// Server holds the HTTP handlers.
type Server struct {
	repo   store.Repo
	runner Runner
	log    *zap.Logger
	loc    *time.Location
}

// New creates a Server.
func New(repo store.Repo, runner Runner, log *zap.Logger, loc *time.Location) *Server {
	return &Server{repo: repo, runner: runner, log: log, loc: loc}
}

// Routes returns the HTTP mux with all endpoints registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/calendar.ics", s.handleCalendarFeed)
	mux.HandleFunc("/internal/dispatch", s.handleDispatch)
	return s.recoverer(mux)
}

// recoverer turns a panicking handler into a plain 500 instead of tearing
// down the connection.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleCalendarFeed serves the user's workout schedule as an iCalendar
// attachment. Lookup failures and disabled calendar sync both degrade to a
// structurally valid empty calendar, so subscribing calendar apps drop
// previously synced events instead of erroring on refresh.
func (s *Server) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	slots, updatedAt := s.loadSlots(r, userID)
	body := ics.Calendar(userID, slots, time.Now().In(s.loc), updatedAt)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+feedFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// loadSlots returns the deduplicated slots to publish plus the user's last
// schedule-change timestamp, or nil slots when the feed should be empty
// (sync disabled, missing profile, or a read failure).
func (s *Server) loadSlots(r *http.Request, userID string) ([]domain.WeeklySlot, time.Time) {
	ctx := r.Context()

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error("feed profile lookup failed", zap.Error(err), zap.String("user", userID))
		}
		return nil, time.Time{}
	}
	if !profile.CalendarSyncEnabled {
		return nil, profile.UpdatedAt
	}

	slots, err := s.repo.ListSlots(ctx, userID)
	if err != nil {
		s.log.Error("feed slot lookup failed", zap.Error(err), zap.String("user", userID))
		return nil, profile.UpdatedAt
	}

	updatedAt := profile.UpdatedAt
	for _, slot := range slots {
		if slot.UpdatedAt.After(updatedAt) {
			updatedAt = slot.UpdatedAt
		}
	}
	return domain.DedupeSlots(slots), updatedAt
}

// handleDispatch runs one dispatcher pass and returns its summary. It gives
// external cron/ops the same trigger the in-process scheduler uses.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sum := s.runner.Run(r.Context(), time.Now().In(s.loc))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if !sum.Success {
		w.WriteHeader(http.StatusInternalServerError)
	}
	if err := json.NewEncoder(w).Encode(sum); err != nil {
		s.log.Error("encode dispatch summary failed", zap.Error(err))
	}
}
