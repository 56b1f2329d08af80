package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"schoolattendance/internal/geo"
	"schoolattendance/internal/metrics"
	"schoolattendance/internal/model"
	"schoolattendance/internal/queue"
	"schoolattendance/internal/state"
)

// Drafter enqueues a notification for a committed record.
type Drafter interface {
	EnqueueRecord(ctx context.Context, recordID string) (model.MessageQueueItem, error)
}

// Request is a raw submission as received from a student.
type Request struct {
	StudentID string
	Status    model.Status
	// Position is the latest location sample, nil when no fix is available.
	Position *model.Coordinates
	Note     string
	ProofURL string
}

// Service coordinates attendance submissions: geofence measurement,
// resolution, commit and notification hand-off.
type Service struct {
	state   *state.State
	q       queue.Queue
	drafter Drafter
	loc     *time.Location
	log     *logrus.Entry
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a service. loc is the school timezone used for the
// entrance cutoff.
func NewService(st *state.State, q queue.Queue, drafter Drafter, loc *time.Location, log *logrus.Entry, m *metrics.Metrics) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		state:   st,
		q:       q,
		drafter: drafter,
		loc:     loc,
		log:     log.WithField("component", "attendance"),
		metrics: m,
		now:     time.Now,
	}
}

// Measure returns the distance snapshot of pos against the configured school
// coordinates, or nil when pos is nil.
func Measure(pos *model.Coordinates, cfg model.SchoolConfig) *model.Location {
	if pos == nil {
		return nil
	}
	return &model.Location{
		Lat:      pos.Lat,
		Lng:      pos.Lng,
		Distance: geo.DistanceMeters(pos.Lat, pos.Lng, cfg.Coordinates.Lat, cfg.Coordinates.Lng),
	}
}

// Submit resolves and commits a submission, then announces it for
// notification. Rejections are returned as *ResolveError and leave no record.
// A persistence failure keeps the record in memory and is only logged.
func (s *Service) Submit(ctx context.Context, req Request) (model.AttendanceRecord, error) {
	if _, ok := s.state.User(req.StudentID); !ok {
		return model.AttendanceRecord{}, state.ErrUserNotFound
	}
	cfg := s.state.Config()
	rec, err := Resolve(Submission{
		StudentID: req.StudentID,
		Requested: req.Status,
		Location:  Measure(req.Position, cfg),
		Note:      req.Note,
		ProofURL:  req.ProofURL,
		At:        s.now().In(s.loc),
	}, cfg)
	if err != nil {
		if kind, ok := KindOf(err); ok {
			s.metrics.Rejected(string(kind))
			s.log.WithFields(logrus.Fields{"student_id": req.StudentID, "kind": kind}).Info("submission rejected")
		}
		return model.AttendanceRecord{}, err
	}

	if err := s.state.AddRecord(ctx, rec); err != nil {
		if !errors.Is(err, state.ErrPersistenceUnavailable) {
			return model.AttendanceRecord{}, err
		}
		s.log.WithError(err).WithField("record_id", rec.ID).Warn("record kept in memory only")
	}
	s.metrics.Submitted(string(rec.Status))
	s.log.WithFields(logrus.Fields{"student_id": rec.StudentID, "record_id": rec.ID, "status": rec.Status}).Info("attendance recorded")

	s.announce(ctx, rec.ID)
	return rec, nil
}

func (s *Service) announce(ctx context.Context, recordID string) {
	err := s.q.Publish(ctx, queue.Message{Type: queue.TypeAttendanceResolved, Body: []byte(recordID)})
	if err == nil {
		return
	}
	s.log.WithError(err).WithField("record_id", recordID).Warn("publish failed, drafting in background")
	go func() {
		if _, err := s.drafter.EnqueueRecord(context.Background(), recordID); err != nil {
			s.log.WithError(err).WithField("record_id", recordID).Warn("background draft failed")
		}
	}()
}
