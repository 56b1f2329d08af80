package model

import (
	"fmt"
	"time"
)

// Role distinguishes administrators from students.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Status is the attendance classification stored on a record.
type Status string

const (
	StatusPresent    Status = "present"
	StatusLate       Status = "late"
	StatusSick       Status = "sick"
	StatusPermission Status = "permission"
	StatusAbsent     Status = "absent"
)

var statusLabels = map[Status]string{
	StatusPresent:    "Hadir",
	StatusLate:       "Terlambat",
	StatusSick:       "Sakit",
	StatusPermission: "Izin",
	StatusAbsent:     "Alpa",
}

// Label returns the display name shown to parents and admins.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// User is an admin or student account.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Credential    string `json:"credential,omitempty"`
	Role          Role   `json:"role"`
	Name          string `json:"name"`
	ClassName     string `json:"className"`
	ParentContact string `json:"parentContact"`
}

// Public returns a copy without the stored credential.
func (u User) Public() User {
	u.Credential = ""
	return u
}

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is the captured position of a submission and its distance to school.
type Location struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance"`
}

// AttendanceRecord is one accepted submission. Optional fields are nil when absent.
type AttendanceRecord struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Status    Status    `json:"status"`
	Timestamp int64     `json:"timestamp"` // unix milliseconds
	Note      *string   `json:"note,omitempty"`
	Location  *Location `json:"location,omitempty"`
	ProofURL  *string   `json:"proofUrl,omitempty"`
}

// Time returns the submission time in loc.
func (r AttendanceRecord) Time(loc *time.Location) time.Time {
	return time.UnixMilli(r.Timestamp).In(loc)
}

// MessageQueueItem is a parent notification draft awaiting dispatch or dismissal.
// Student fields are a snapshot taken when the item was created.
type MessageQueueItem struct {
	ID            string `json:"id"`
	StudentID     string `json:"studentId"`
	StudentName   string `json:"studentName"`
	ClassName     string `json:"className"`
	ParentContact string `json:"parentContact"`
	Message       string `json:"message"`
	Timestamp     int64  `json:"timestamp"`
	Status        Status `json:"status"`
}

// SchoolConfig is the process-wide geofence and entrance cutoff.
type SchoolConfig struct {
	EntranceTime string      `json:"entranceTime"` // HH:MM, 24h
	Coordinates  Coordinates `json:"coordinates"`
	RadiusLimit  float64     `json:"radiusLimit"` // meters
}

// Validate checks the radius and entrance time invariants.
func (c SchoolConfig) Validate() error {
	if c.RadiusLimit <= 0 {
		return fmt.Errorf("radius limit must be positive, got %v", c.RadiusLimit)
	}
	if _, _, err := c.Entrance(); err != nil {
		return err
	}
	return nil
}

// Entrance parses EntranceTime into hour and minute.
func (c SchoolConfig) Entrance() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.EntranceTime)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid entrance time %q: want HH:MM", c.EntranceTime)
	}
	return t.Hour(), t.Minute(), nil
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
