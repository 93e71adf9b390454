package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

type RobotRepo struct {
	pool *pgxpool.Pool
}

func NewRobotRepo(pool *pgxpool.Pool) *RobotRepo {
	return &RobotRepo{pool: pool}
}

func (r *RobotRepo) Create(ctx context.Context, rb *models.Robot) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO robots (id, name, secret_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, rb.ID, rb.Name, rb.SecretHash).Scan(&rb.CreatedAt)
}

// GetByName returns nil, nil when no robot has that name.
func (r *RobotRepo) GetByName(ctx context.Context, name string) (*models.Robot, error) {
	var rb models.Robot
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, secret_hash, created_at FROM robots WHERE name = $1
	`, name).Scan(&rb.ID, &rb.Name, &rb.SecretHash, &rb.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rb, nil
}

func (r *RobotRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Robot, error) {
	var rb models.Robot
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, secret_hash, created_at FROM robots WHERE id = $1
	`, id).Scan(&rb.ID, &rb.Name, &rb.SecretHash, &rb.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rb, nil
}
