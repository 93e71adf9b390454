package auth

import (
	"context"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// Repository is the robot persistence the auth service needs.
// repository.RobotRepo satisfies it.
type Repository interface {
	Create(ctx context.Context, rb *models.Robot) error
	// GetByName returns nil, nil when the robot does not exist.
	GetByName(ctx context.Context, name string) (*models.Robot, error)
}
