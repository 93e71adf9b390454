package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// TokenValidator resolves a robot token to its ID.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// AssignmentLister reads the assignment history.
type AssignmentLister interface {
	ListByRobot(ctx context.Context, robotID uuid.UUID, limit int) ([]*models.AssignmentRecord, error)
}

// PoolSizer reports how many tasks are pending.
type PoolSizer interface {
	Len() int
}

// Sites lists the known rooms and charging stations.
type Sites interface {
	Rooms() []models.Room
	Stations() []models.Station
}

// Bucketer names the office time bucket of an instant.
type Bucketer interface {
	Bucket(t time.Time) string
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type Handler struct {
	authSvc     TokenValidator
	assignments AssignmentLister
	pool        PoolSizer
	sites       Sites
	buckets     Bucketer
	now         func() time.Time
	log         *slog.Logger
}

func NewHandler(
	authSvc TokenValidator,
	assignments AssignmentLister,
	pool PoolSizer,
	sites Sites,
	buckets Bucketer,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		authSvc:     authSvc,
		assignments: assignments,
		pool:        pool,
		sites:       sites,
		buckets:     buckets,
		now:         time.Now,
		log:         log,
	}
}

func (h *Handler) robotIDFromRequest(r *http.Request) (uuid.UUID, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return uuid.Nil, fmt.Errorf("missing authorization")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return uuid.Nil, fmt.Errorf("bad authorization format")
	}
	token := strings.TrimSpace(authz[len(prefix):])
	if token == "" {
		return uuid.Nil, fmt.Errorf("empty token")
	}
	return h.authSvc.ValidateToken(r.Context(), token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"pending_tasks": h.pool.Len(),
		"rooms":         len(h.sites.Rooms()),
		"stations":      len(h.sites.Stations()),
		"time_bucket":   h.buckets.Bucket(now),
		"server_time":   now.UTC(),
	})
}

// GET /v1/robots/me/assignments?limit=N
func (h *Handler) ListMyAssignments(w http.ResponseWriter, r *http.Request) {
	robotID, err := h.robotIDFromRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	list, err := h.assignments.ListByRobot(r.Context(), robotID, limit)
	if err != nil {
		h.log.Error("list assignments failed", "robot_id", robotID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.AssignmentRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}
