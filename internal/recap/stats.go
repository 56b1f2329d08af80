package recap

import (
	"math"
	"slices"
	"time"

	"schoolattendance/internal/model"
)

// StudentStats is the student's own dashboard view of the full history.
type StudentStats struct {
	Records         []model.AttendanceRecord `json:"records"`
	SubmittedToday  bool                     `json:"submittedToday"`
	Attended        int                      `json:"attended"`
	Excused         int                      `json:"excused"`
	AttendanceRatio int                      `json:"attendancePercent"`
}

// ForStudent collects a student's records newest first and derives the
// dashboard counters. Attended is present+late, excused is sick+permission.
func ForStudent(history []model.AttendanceRecord, studentID string, now time.Time) StudentStats {
	var own []model.AttendanceRecord
	for _, r := range history {
		if r.StudentID == studentID {
			own = append(own, r)
		}
	}
	slices.SortStableFunc(own, func(a, b model.AttendanceRecord) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		}
		return 0
	})

	st := StudentStats{Records: own}
	today := WindowStart(Daily, now)
	tomorrow := today.AddDate(0, 0, 1)
	for _, r := range own {
		switch r.Status {
		case model.StatusPresent, model.StatusLate:
			st.Attended++
		case model.StatusSick, model.StatusPermission:
			st.Excused++
		}
		t := r.Time(now.Location())
		if !t.Before(today) && t.Before(tomorrow) {
			st.SubmittedToday = true
		}
	}
	if len(own) > 0 {
		st.AttendanceRatio = int(math.Round(float64(st.Attended) / float64(len(own)) * 100))
	}
	return st
}
