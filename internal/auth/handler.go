package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

type EnrolRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type LoginRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type RobotResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Register handles POST /v1/robots.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req EnrolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Secret == "" {
		http.Error(w, `{"error":"name and secret are required"}`, http.StatusBadRequest)
		return
	}
	rb, err := h.svc.Register(r.Context(), req.Name, req.Secret)
	if err != nil {
		if errors.Is(err, ErrDuplicateRobot) {
			http.Error(w, `{"error":"robot already enrolled"}`, http.StatusConflict)
			return
		}
		h.log.Error("enrol robot failed", "name", req.Name, "error", err)
		http.Error(w, `{"error":"enrolment failed"}`, http.StatusInternalServerError)
		return
	}
	h.log.Info("robot enrolled", "robot_id", rb.ID, "name", rb.Name)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(RobotResponse{ID: rb.ID.String(), Name: rb.Name, CreatedAt: rb.CreatedAt})
}

// Login handles POST /v1/robots/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Secret == "" {
		http.Error(w, `{"error":"missing name or secret"}`, http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(r.Context(), req.Name, req.Secret)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		h.log.Error("robot login failed", "error", err)
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{Token: token})
}
