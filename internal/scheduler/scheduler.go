// Package scheduler runs the periodic daily recap snapshot.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"schoolattendance/internal/metrics"
	"schoolattendance/internal/model"
	"schoolattendance/internal/recap"
	"schoolattendance/internal/state"
)

// RecapScheduler publishes the daily recap as gauges and a log line.
type RecapScheduler struct {
	cron    *cron.Cron
	spec    string
	state   *state.State
	loc     *time.Location
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func NewRecapScheduler(spec string, st *state.State, loc *time.Location, m *metrics.Metrics, log *logrus.Entry) *RecapScheduler {
	return &RecapScheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		spec:    spec,
		state:   st,
		loc:     loc,
		metrics: m,
		log:     log.WithField("component", "scheduler"),
	}
}

// Start registers the job and starts the cron engine.
func (s *RecapScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Snapshot(time.Now()) }); err != nil {
		return fmt.Errorf("add recap job %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.WithField("spec", s.spec).Info("recap scheduler started")
	return nil
}

// Stop waits for a running job to finish.
func (s *RecapScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("recap scheduler stopped")
}

// Snapshot aggregates today's recap at now, updates the gauges and returns
// the totals per status.
func (s *RecapScheduler) Snapshot(now time.Time) recap.Counts {
	rows := recap.Aggregate(s.state.Records(), s.state.Students(), recap.Daily, now.In(s.loc))

	var total recap.Counts
	for _, r := range rows {
		total.Present += r.Counts.Present
		total.Late += r.Counts.Late
		total.Sick += r.Counts.Sick
		total.Permission += r.Counts.Permission
		total.Absent += r.Counts.Absent
	}

	s.metrics.SetRecapToday(string(model.StatusPresent), float64(total.Present))
	s.metrics.SetRecapToday(string(model.StatusLate), float64(total.Late))
	s.metrics.SetRecapToday(string(model.StatusSick), float64(total.Sick))
	s.metrics.SetRecapToday(string(model.StatusPermission), float64(total.Permission))
	s.metrics.SetRecapToday(string(model.StatusAbsent), float64(total.Absent))

	s.log.WithFields(logrus.Fields{
		"students":   len(rows),
		"present":    total.Present,
		"late":       total.Late,
		"sick":       total.Sick,
		"permission": total.Permission,
		"absent":     total.Absent,
	}).Info("daily recap snapshot")
	return total
}
