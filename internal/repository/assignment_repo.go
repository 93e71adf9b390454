package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

type AssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) *AssignmentRepo {
	return &AssignmentRepo{pool: pool}
}

func (r *AssignmentRepo) Create(ctx context.Context, a *models.AssignmentRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assignments (id, robot_id, task_id, kind, room_id, cost, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.RobotID, a.TaskID, a.Kind, a.RoomID, a.Cost, a.AssignedAt)
	return err
}

// ListByRobot returns the most recent assignments handed to a robot.
func (r *AssignmentRepo) ListByRobot(ctx context.Context, robotID uuid.UUID, limit int) ([]*models.AssignmentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, robot_id, task_id, kind, room_id, cost, assigned_at
		FROM assignments WHERE robot_id = $1 ORDER BY assigned_at DESC LIMIT $2
	`, robotID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.AssignmentRecord
	for rows.Next() {
		var a models.AssignmentRecord
		if err := rows.Scan(&a.ID, &a.RobotID, &a.TaskID, &a.Kind, &a.RoomID, &a.Cost, &a.AssignedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
