package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// ErrEmptyRegistry is returned by Load when rooms or stations are missing.
var ErrEmptyRegistry = errors.New("registry is empty")

// Source is where registry entries are loaded from.
type Source interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListStations(ctx context.Context) ([]models.Station, error)
}

// Service holds rooms and charging stations. It is filled once by Load and
// read-only afterwards.
type Service struct {
	rooms    map[string]models.Pose
	stations map[int]models.Pose
}

// Load reads both registries. Empty or unreadable registries are an error;
// callers treat that as fatal at startup.
func Load(ctx context.Context, src Source) (*Service, error) {
	rooms, err := src.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("%w: no rooms", ErrEmptyRegistry)
	}
	stations, err := src.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load charging stations: %w", err)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: no charging stations", ErrEmptyRegistry)
	}

	s := &Service{
		rooms:    make(map[string]models.Pose, len(rooms)),
		stations: make(map[int]models.Pose, len(stations)),
	}
	for _, r := range rooms {
		s.rooms[r.ID] = r.Pose
	}
	for _, st := range stations {
		s.stations[st.ID] = st.Pose
	}
	return s, nil
}

func (s *Service) Room(id string) (models.Pose, bool) {
	p, ok := s.rooms[id]
	return p, ok
}

func (s *Service) Station(id int) (models.Pose, bool) {
	p, ok := s.stations[id]
	return p, ok
}

// Rooms returns all rooms sorted by ID.
func (s *Service) Rooms() []models.Room {
	out := make([]models.Room, 0, len(s.rooms))
	for id, p := range s.rooms {
		out = append(out, models.Room{ID: id, Pose: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stations returns all charging stations sorted by ID.
func (s *Service) Stations() []models.Station {
	out := make([]models.Station, 0, len(s.stations))
	for id, p := range s.stations {
		out = append(out, models.Station{ID: id, Pose: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
