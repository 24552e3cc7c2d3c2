// Package httpapi exposes a small read-only status API next to the bot.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/PoluyanbIch/StudyQuizBot/internal/content"
	"github.com/PoluyanbIch/StudyQuizBot/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ActiveCounter reports how many quizzes are running.
type ActiveCounter interface {
	Active() int
}

type Handler struct {
	courses     []content.Course
	leaderboard service.LeaderboardService
	sessions    ActiveCounter
	started     time.Time
}

func NewHandler(courses []content.Course, leaderboard service.LeaderboardService, sessions ActiveCounter) *Handler {
	return &Handler{
		courses:     courses,
		leaderboard: leaderboard,
		sessions:    sessions,
		started:     time.Now(),
	}
}

// Router builds the chi router serving the status API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/courses", h.ListCourses)
		r.Get("/leaderboard", h.Leaderboard)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": h.sessions.Active(),
		"uptime_seconds":  int(time.Since(h.started).Seconds()),
	})
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	out := make([]content.CourseSummary, 0, len(h.courses))
	for _, c := range h.courses {
		out = append(out, c.Summary())
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLimit)
	}

	top := h.leaderboard.GetTop(limit)
	if top == nil {
		top = []service.LeaderboardEntry{}
	}
	respondJSON(w, http.StatusOK, top)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
