package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

type contextKey string

const ctxRobotKey contextKey = "robot"

// TokenValidator turns a bearer token into a robot ID.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// RobotLookup resolves the robot named by a token. It returns nil, nil for
// robots that no longer exist.
type RobotLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Robot, error)
}

// RobotAuth validates the Bearer JWT and puts the enrolled robot into the
// request context.
func RobotAuth(tokens TokenValidator, robots RobotLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			rb, err := robots.GetByID(r.Context(), id)
			if err != nil {
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			if rb == nil {
				http.Error(w, `{"error":"unknown robot"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRobot(r.Context(), rb)))
		})
	}
}

// RobotFromCtx returns the authenticated robot or nil.
func RobotFromCtx(ctx context.Context) *models.Robot {
	rb, _ := ctx.Value(ctxRobotKey).(*models.Robot)
	return rb
}

// WithRobot returns a context carrying the given robot.
func WithRobot(ctx context.Context, rb *models.Robot) context.Context {
	return context.WithValue(ctx, ctxRobotKey, rb)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
