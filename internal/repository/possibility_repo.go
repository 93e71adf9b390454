package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// PossibilityRepo stores door observations and the derived open possibility
// per (room, time bucket).
type PossibilityRepo struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewPossibilityRepo(pool *pgxpool.Pool, timeout time.Duration) *PossibilityRepo {
	return &PossibilityRepo{pool: pool, timeout: timeout}
}

func (r *PossibilityRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// ReadOpenPossibility returns a value in [0, 100]. A (room, bucket) pair that
// was never observed reads as 0.
func (r *PossibilityRepo) ReadOpenPossibility(ctx context.Context, roomID, bucket string) (float64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var p float64
	err := r.pool.QueryRow(ctx, `
		SELECT open_possibility FROM possibility_table
		WHERE room_id = $1 AND time_bucket = $2
	`, roomID, bucket).Scan(&p)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return p, nil
}

// RecordObservation appends the observation and recomputes the bucket's
// possibility as 100 * opens / observations in one transaction.
func (r *PossibilityRepo) RecordObservation(ctx context.Context, roomID, bucket, status string) error {
	if !models.DoorObservable(status) {
		return fmt.Errorf("unobservable door status %q", status)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO door_status_list (room_id, time_bucket, door_status, observed_at)
		VALUES ($1, $2, $3, now())
	`, roomID, bucket, status); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO possibility_table (room_id, time_bucket, open_possibility)
		SELECT $1, $2, 100.0 * count(*) FILTER (WHERE door_status = $3) / count(*)
		FROM door_status_list WHERE room_id = $1 AND time_bucket = $2
		ON CONFLICT (room_id, time_bucket)
		DO UPDATE SET open_possibility = EXCLUDED.open_possibility
	`, roomID, bucket, models.DoorStatusOpen); err != nil {
		return fmt.Errorf("update possibility: %w", err)
	}
	return tx.Commit(ctx)
}
