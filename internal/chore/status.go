// Package chore derives display status for scheduled chores from the
// schedule and whatever the ledger has recorded.
package chore

import (
	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusNotDue    Status = "not_due"
)

// ComputeStatus labels the chore scheduled on date given its recorded
// occurrence (nil when none). A completed occurrence is completed whatever
// the date; otherwise past dates are overdue, dates inside the actionable
// window are pending and later ones are not due yet.
func ComputeStatus(date calendar.Date, occ *model.Occurrence, today calendar.Date) Status {
	if occ != nil && occ.Completed {
		return StatusCompleted
	}
	if !schedule.IsActionable(date, today) {
		return StatusNotDue
	}
	if date.Before(today) {
		return StatusOverdue
	}
	return StatusPending
}

// Summary counts a participant's chores by status.
type Summary struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
	NotDue    int `json:"not_due"`
}

func (s *Summary) Add(st Status) {
	switch st {
	case StatusPending:
		s.Pending++
	case StatusCompleted:
		s.Completed++
	case StatusOverdue:
		s.Overdue++
	case StatusNotDue:
		s.NotDue++
	}
}

// Summarize tallies statuses per assignee. lookup returns the recorded
// occurrence for an assignment, or nil.
func Summarize(assignments []schedule.Assignment, lookup func(schedule.Assignment) *model.Occurrence, today calendar.Date) map[model.Participant]Summary {
	out := make(map[model.Participant]Summary, len(model.Participants))
	for _, p := range model.Participants {
		out[p] = Summary{}
	}
	for _, a := range assignments {
		s := out[a.Participant]
		s.Add(ComputeStatus(a.Date, lookup(a), today))
		out[a.Participant] = s
	}
	return out
}
