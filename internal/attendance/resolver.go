package attendance

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"schoolattendance/internal/geo"
	"schoolattendance/internal/model"
)

// Submission is a student's request to record today's attendance.
type Submission struct {
	StudentID string
	Requested model.Status
	// Location is the latest position sample with its distance to school, nil when no fix is available.
	Location *model.Location
	Note     string
	ProofURL string
	At       time.Time
}

// Resolve decides the final status of a submission and builds the record.
// It has no side effects; committing the record is the caller's job.
//
// Present requires a location inside the geofence and turns into late when
// At is strictly after the entrance cutoff in At's location. Sick and
// permission require a note and skip the location check.
func Resolve(sub Submission, cfg model.SchoolConfig) (model.AttendanceRecord, error) {
	note := strings.TrimSpace(sub.Note)
	resolved := sub.Requested

	switch sub.Requested {
	case model.StatusPresent:
		if sub.Location == nil {
			return model.AttendanceRecord{}, &ResolveError{Kind: KindLocationUnavailable, Radius: cfg.RadiusLimit}
		}
		if !geo.WithinRadius(sub.Location.Distance, cfg.RadiusLimit) {
			d := sub.Location.Distance
			return model.AttendanceRecord{}, &ResolveError{Kind: KindLocationOutOfRange, Distance: &d, Radius: cfg.RadiusLimit}
		}
		late, err := afterEntrance(sub.At, cfg)
		if err != nil {
			return model.AttendanceRecord{}, err
		}
		if late {
			resolved = model.StatusLate
		}
	case model.StatusSick, model.StatusPermission:
		if note == "" {
			return model.AttendanceRecord{}, &ResolveError{Kind: KindMissingNote}
		}
	default:
		return model.AttendanceRecord{}, &ResolveError{Kind: KindInvalidStatus}
	}

	rec := model.AttendanceRecord{
		ID:        uuid.NewString(),
		StudentID: sub.StudentID,
		Status:    resolved,
		Timestamp: sub.At.UnixMilli(),
		Note:      model.StringPtr(note),
		ProofURL:  model.StringPtr(sub.ProofURL),
	}
	if sub.Location != nil {
		loc := *sub.Location
		rec.Location = &loc
	}
	return rec, nil
}

func afterEntrance(at time.Time, cfg model.SchoolConfig) (bool, error) {
	h, m, err := cfg.Entrance()
	if err != nil {
		return false, err
	}
	cutoff := time.Date(at.Year(), at.Month(), at.Day(), h, m, 0, 0, at.Location())
	return at.After(cutoff), nil
}
