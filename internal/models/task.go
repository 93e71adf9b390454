package models

import (
	"time"

	"github.com/google/uuid"
)

// Task kinds. The set is closed: every Task is one of the types below.
const (
	TaskKindSimple   = "simple"
	TaskKindCompound = "compound"
	TaskKindCharging = "charging"
	TaskKindDoor     = "door"
)

// Task is a unit of work offered to a robot.
type Task interface {
	TaskID() uuid.UUID
	Kind() string
	// Goal is the first pose the robot must reach.
	Goal() Pose
	// Clone returns a copy that shares no mutable state with the receiver.
	Clone() Task
	isTask()
}

// SimpleTask sends a robot into one room before a deadline.
type SimpleTask struct {
	ID              uuid.UUID `json:"id"`
	RoomID          string    `json:"room_id"`
	Target          Pose      `json:"target"`
	Deadline        time.Time `json:"deadline"`
	Priority        int       `json:"priority"`
	OpenPossibility float64   `json:"open_possibility"`
	BatteryEstimate float64   `json:"battery_estimate"`
}

func (t *SimpleTask) TaskID() uuid.UUID { return t.ID }
func (t *SimpleTask) Kind() string      { return TaskKindSimple }
func (t *SimpleTask) Goal() Pose        { return t.Target }
func (t *SimpleTask) isTask()           {}

func (t *SimpleTask) Clone() Task {
	c := *t
	return &c
}

// Stop is one leg target of a CompoundTask.
type Stop struct {
	RoomID   string    `json:"room_id"`
	Target   Pose      `json:"target"`
	Deadline time.Time `json:"deadline"`
	Priority int       `json:"priority"`
}

// CompoundTask is an ordered sequence of stops handed out as one assignment.
// Stops are visited in slice order; the order is never changed.
type CompoundTask struct {
	ID              uuid.UUID `json:"id"`
	Stops           []Stop    `json:"stops"`
	OpenPossibility float64   `json:"open_possibility"`
	BatteryEstimate float64   `json:"battery_estimate"`
}

func (t *CompoundTask) TaskID() uuid.UUID { return t.ID }
func (t *CompoundTask) Kind() string      { return TaskKindCompound }
func (t *CompoundTask) isTask()           {}

func (t *CompoundTask) Goal() Pose {
	if len(t.Stops) == 0 {
		return Pose{}
	}
	return t.Stops[0].Target
}

func (t *CompoundTask) Clone() Task {
	c := *t
	c.Stops = append([]Stop(nil), t.Stops...)
	return &c
}

// ChargingTask sends a robot to a charging station.
type ChargingTask struct {
	ID                  uuid.UUID     `json:"id"`
	StationID           int           `json:"station_id"`
	Station             Pose          `json:"station"`
	RemainingChargeTime time.Duration `json:"remaining_charge_time"`
}

func (t *ChargingTask) TaskID() uuid.UUID { return t.ID }
func (t *ChargingTask) Kind() string      { return TaskKindCharging }
func (t *ChargingTask) Goal() Pose        { return t.Station }
func (t *ChargingTask) isTask()           {}

func (t *ChargingTask) Clone() Task {
	c := *t
	return &c
}

// DoorTask asks a robot to go and observe a door whose estimate is getting stale.
type DoorTask struct {
	ID              uuid.UUID `json:"id"`
	RoomID          string    `json:"room_id"`
	Target          Pose      `json:"target"`
	LastUpdate      time.Time `json:"last_update"`
	OpenPossibility float64   `json:"open_possibility"`
}

func (t *DoorTask) TaskID() uuid.UUID { return t.ID }
func (t *DoorTask) Kind() string      { return TaskKindDoor }
func (t *DoorTask) Goal() Pose        { return t.Target }
func (t *DoorTask) isTask()           {}

func (t *DoorTask) Clone() Task {
	c := *t
	return &c
}

// RoomOf returns the room a task is bound to, or "" for charging tasks.
func RoomOf(t Task) string {
	switch v := t.(type) {
	case *SimpleTask:
		return v.RoomID
	case *CompoundTask:
		if len(v.Stops) > 0 {
			return v.Stops[0].RoomID
		}
	case *DoorTask:
		return v.RoomID
	}
	return ""
}
