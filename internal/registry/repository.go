package registry

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const poseColumns = `pos_x, pos_y, pos_z, ori_x, ori_y, ori_z, ori_w`

// ListRooms returns every room and the pose a robot parks at to enter it.
func (r *Repository) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT room_id, `+poseColumns+`
		FROM rooms ORDER BY room_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Room
	for rows.Next() {
		var rm models.Room
		p := &rm.Pose
		if err := rows.Scan(&rm.ID, &p.Position.X, &p.Position.Y, &p.Position.Z,
			&p.Orientation.X, &p.Orientation.Y, &p.Orientation.Z, &p.Orientation.W); err != nil {
			return nil, err
		}
		list = append(list, rm)
	}
	return list, rows.Err()
}

// ListStations returns every charging station.
func (r *Repository) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT station_id, `+poseColumns+`
		FROM charging_stations ORDER BY station_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Station
	for rows.Next() {
		var st models.Station
		p := &st.Pose
		if err := rows.Scan(&st.ID, &p.Position.X, &p.Position.Y, &p.Position.Z,
			&p.Orientation.X, &p.Orientation.Y, &p.Orientation.Z, &p.Orientation.W); err != nil {
			return nil, err
		}
		list = append(list, st)
	}
	return list, rows.Err()
}
