package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Door status values reported by robots.
const (
	DoorStatusUnknown = "unknown"
	DoorStatusOpen    = "open"
	DoorStatusClosed  = "closed"
)

// DoorObservable reports whether a door status carries an observation.
func DoorObservable(status string) bool {
	return status == DoorStatusOpen || status == DoorStatusClosed
}

type Robot struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// LastTaskOutcome is what a robot reports about the task it just finished.
type LastTaskOutcome struct {
	TaskID     *uuid.UUID `json:"task_id,omitempty"`
	Completed  bool       `json:"completed"`
	DoorStatus string     `json:"door_status"`
	RoomID     string     `json:"room_id"`
	At         time.Time  `json:"at,omitempty"`
}

// RobotRequest is built per allocation request and never persisted.
type RobotRequest struct {
	RobotID      uuid.UUID       `json:"robot_id"`
	LastTask     LastTaskOutcome `json:"last_task"`
	Pose         Pose            `json:"pose"`
	BatteryLevel float64         `json:"battery_level"`
}

// Assignment is the response handed back to the robot for the selected task.
type Assignment struct {
	TaskID    uuid.UUID `json:"task_id"`
	Kind      string    `json:"kind"`
	Goal      Pose      `json:"goal"`
	RoomID    string    `json:"room_id,omitempty"`
	StationID *int      `json:"station_id,omitempty"`
	Stops     []Stop    `json:"stops,omitempty"`
	Cost      float64   `json:"cost"`
	Completed bool      `json:"completed"`
}

// AssignmentRecord is one row of the assignment history.
type AssignmentRecord struct {
	ID         uuid.UUID `json:"id"`
	RobotID    uuid.UUID `json:"robot_id"`
	TaskID     uuid.UUID `json:"task_id"`
	Kind       string    `json:"kind"`
	RoomID     string    `json:"room_id"`
	Cost       float64   `json:"cost"`
	AssignedAt time.Time `json:"assigned_at"`
}

// ScoredTask pairs a scored copy of a task with its cost. Err is non-nil
// (and Cost is NaN) when the task cannot be handed out for this request.
type ScoredTask struct {
	Task Task
	Cost float64
	Err  error
}

// Valid reports whether the entry may take part in selection.
func (s ScoredTask) Valid() bool {
	return s.Err == nil && !math.IsNaN(s.Cost)
}

// Room is a registry entry mapping a room to the pose a robot should reach.
type Room struct {
	ID   string `json:"id"`
	Pose Pose   `json:"pose"`
}

type Station struct {
	ID   int  `json:"id"`
	Pose Pose `json:"pose"`
}
