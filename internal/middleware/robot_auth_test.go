package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubTokens struct {
	id  uuid.UUID
	err error
}

func (s *stubTokens) ValidateToken(_ context.Context, _ string) (uuid.UUID, error) {
	return s.id, s.err
}

type stubRobots struct {
	robot *models.Robot
	err   error
}

func (s *stubRobots) GetByID(_ context.Context, _ uuid.UUID) (*models.Robot, error) {
	return s.robot, s.err
}

// okHandler writes 200 and the robot name (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if rb := RobotFromCtx(r.Context()); rb != nil {
		w.Write([]byte(rb.Name))
	}
	w.WriteHeader(http.StatusOK)
})

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRobotAuth_ValidToken(t *testing.T) {
	robot := &models.Robot{ID: uuid.New(), Name: "rb-7"}
	mw := RobotAuth(&stubTokens{id: robot.ID}, &stubRobots{robot: robot})(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); body != robot.Name {
		t.Errorf("expected robot name %q in body, got %q", robot.Name, body)
	}
}

func TestRobotAuth_MissingHeader(t *testing.T) {
	mw := RobotAuth(&stubTokens{}, &stubRobots{})(okHandler)

	cases := []struct {
		name   string
		header string
	}{
		{"no header at all", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRobotAuth_InvalidToken(t *testing.T) {
	mw := RobotAuth(&stubTokens{err: errors.New("expired")}, &stubRobots{})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRobotAuth_UnknownRobot(t *testing.T) {
	mw := RobotAuth(&stubTokens{id: uuid.New()}, &stubRobots{})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer deleted-robot")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRobotAuth_LookupError(t *testing.T) {
	mw := RobotAuth(&stubTokens{id: uuid.New()}, &stubRobots{err: errors.New("db down")})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
