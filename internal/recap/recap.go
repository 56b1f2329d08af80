// Package recap aggregates attendance history into per-student counts over
// a reporting window.
package recap

import (
	"fmt"
	"time"

	"schoolattendance/internal/model"
)

// Period selects the reporting window.
type Period string

const (
	Daily    Period = "daily"
	Monthly  Period = "monthly"
	Semester Period = "semester"
)

// ParsePeriod accepts daily, monthly or semester. Empty means daily.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return Daily, nil
	case Daily, Monthly, Semester:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// WindowStart returns the inclusive start of the window ending at now, in
// now's location. Semesters are January to June and July to December.
func WindowStart(p Period, now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch p {
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case Semester:
		if m <= time.June {
			return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		}
		return time.Date(y, time.July, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// Counts holds occurrences of each status.
type Counts struct {
	Present    int `json:"present"`
	Late       int `json:"late"`
	Sick       int `json:"sick"`
	Permission int `json:"permission"`
	Absent     int `json:"absent"`
}

// Summary is one student's row of a recap.
type Summary struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	ClassName string `json:"className"`
	Counts    Counts `json:"counts"`
	// Total counts real records only; an inferred absence is not included.
	Total int `json:"total"`
}

// Aggregate counts each student's records inside the window of p ending at
// now. In the daily window a student without any record gets one inferred
// absence. Output follows the order of students; inputs are not modified.
func Aggregate(history []model.AttendanceRecord, students []model.User, p Period, now time.Time) []Summary {
	start := WindowStart(p, now).UnixMilli()
	end := now.UnixMilli()

	byStudent := make(map[string]*Counts, len(students))
	totals := make(map[string]int, len(students))
	for _, s := range students {
		byStudent[s.ID] = &Counts{}
	}
	for _, r := range history {
		c, ok := byStudent[r.StudentID]
		if !ok || r.Timestamp < start || r.Timestamp > end {
			continue
		}
		switch r.Status {
		case model.StatusPresent:
			c.Present++
		case model.StatusLate:
			c.Late++
		case model.StatusSick:
			c.Sick++
		case model.StatusPermission:
			c.Permission++
		case model.StatusAbsent:
			c.Absent++
		}
		totals[r.StudentID]++
	}

	out := make([]Summary, 0, len(students))
	for _, s := range students {
		c := *byStudent[s.ID]
		total := totals[s.ID]
		if p == Daily && total == 0 {
			c.Absent = 1
		}
		out = append(out, Summary{
			StudentID: s.ID,
			Name:      s.Name,
			ClassName: s.ClassName,
			Counts:    c,
			Total:     total,
		})
	}
	return out
}
