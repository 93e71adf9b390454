package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/auth"
	"github.com/inaiurai/fleetdispatch/internal/dashboard"
	"github.com/inaiurai/fleetdispatch/internal/models"
	"github.com/inaiurai/fleetdispatch/internal/registry"
)

type noRobots struct{}

func (noRobots) Create(context.Context, *models.Robot) error { return nil }
func (noRobots) GetByName(context.Context, string) (*models.Robot, error) {
	return nil, nil
}

type oneRoom struct{}

func (oneRoom) ListRooms(context.Context) ([]models.Room, error) {
	return []models.Room{{ID: "A"}}, nil
}
func (oneRoom) ListStations(context.Context) ([]models.Station, error) {
	return []models.Station{{ID: 1}}, nil
}

type noHistory struct{}

func (noHistory) ListByRobot(context.Context, uuid.UUID, int) ([]*models.AssignmentRecord, error) {
	return nil, nil
}

type emptyPool struct{}

func (emptyPool) Len() int { return 0 }

type utcHour struct{}

func (utcHour) Bucket(t time.Time) string { return t.UTC().Format("Mon-15") }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	reg, err := registry.Load(context.Background(), oneRoom{})
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	authSvc := auth.NewService(noRobots{}, "test")
	return New(
		auth.NewHandler(authSvc, nil),
		registry.NewHandler(reg, nil),
		dashboard.NewHandler(authSvc, noHistory{}, emptyPool{}, reg, utcHour{}, nil),
	)
}

func TestRouter_Routes(t *testing.T) {
	h := newTestRouter(t)
	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/v1/rooms", http.StatusOK},
		{http.MethodGet, "/v1/stations", http.StatusOK},
		{http.MethodGet, "/v1/status", http.StatusOK},
		{http.MethodPost, "/v1/status", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/robots", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/robots/me/assignments", http.StatusUnauthorized},
		{http.MethodGet, "/v1/nowhere", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
