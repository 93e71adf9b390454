package registry

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// ListRooms handles GET /v1/rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeList(w, h.svc.Rooms())
}

// ListStations handles GET /v1/stations.
func (h *Handler) ListStations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeList(w, h.svc.Stations())
}

func writeList[T models.Room | models.Station](w http.ResponseWriter, list []T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(list)
}
