package model

import (
	"time"
)

// PunchType tells whether an employee clocked in or out.
type PunchType string

const (
	TypeIn  PunchType = "in"
	TypeOut PunchType = "out"
)

// Valid reports whether t is one of the two known punch types.
func (t PunchType) Valid() bool {
	return t == TypeIn || t == TypeOut
}

// SyncStatus defines the device-local delivery state of a punch. It is never
// sent to or stored by the server.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSynced  SyncStatus = "synced"
)

// Punch is a single clock-in or clock-out event. Once the server has
// accepted a punch it is immutable; corrections are made by appending new
// punches, never by editing old ones.
//
// ID is server-assigned once accepted. While a punch only exists in the
// device's pending queue it carries a client-generated provisional id
// (a UnixNano timestamp); the two id spaces never collide because a synced
// punch is removed from the queue rather than renumbered.
type Punch struct {
	ID         int64      `json:"id"`
	EmployeeID int64      `json:"employeeId"`
	Type       PunchType  `json:"type"`
	Timestamp  time.Time  `json:"timestamp"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Note       string     `json:"note,omitempty"`
	SyncStatus SyncStatus `json:"-"`
}
