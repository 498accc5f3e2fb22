// Package schedule decides which participant owns a chore on a given date and
// which dates a participant may act on.
//
// Ownership is always recomputed from (kind, date); nothing in the system
// stores an "assigned to" field.
package schedule

import (
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
)

// Epoch is the Sunday the rotation is anchored to.
var Epoch = calendar.New(2026, time.January, 18)

// cadence is the rule for one chore kind. d is the signed day offset from Epoch.
type cadence interface {
	assignee(d int, date calendar.Date) (model.Participant, bool)
}

// alternating occurs every other day (days whose offset has the given parity)
// and hands successive occurrences to alternating participants.
type alternating struct {
	parity     int
	first      model.Participant
	exceptions map[int]model.Participant
}

func (a alternating) assignee(d int, _ calendar.Date) (model.Participant, bool) {
	if p, ok := a.exceptions[d]; ok {
		return p, true
	}
	if floorMod(d, 2) != a.parity {
		return "", false
	}
	if floorMod(floorDiv(d, 2), 2) == 0 {
		return a.first, true
	}
	return a.first.Other(), true
}

// weekly occurs on one weekday and alternates participants week by week.
type weekly struct {
	weekday time.Weekday
	first   model.Participant
}

func (w weekly) assignee(d int, date calendar.Date) (model.Participant, bool) {
	if date.Weekday() != w.weekday {
		return "", false
	}
	if floorMod(floorDiv(d, 7), 2) == 0 {
		return w.first, true
	}
	return w.first.Other(), true
}

var cadences = map[model.ChoreKind]cadence{
	// Day 0 predates the odd-day rotation and was swept by P2.
	model.ChoreSweeping: alternating{parity: 1, first: model.P1, exceptions: map[int]model.Participant{0: model.P2}},
	model.ChoreKitchen:  alternating{parity: 0, first: model.P2},
	model.ChoreVeranda:  weekly{weekday: time.Sunday, first: model.P2},
	model.ChoreToilet:   weekly{weekday: time.Sunday, first: model.P1},
}

// Assign returns the participant responsible for kind on date. ok is false
// when the chore does not occur that day or the kind is unknown.
func Assign(kind model.ChoreKind, date calendar.Date) (p model.Participant, ok bool) {
	c, found := cadences[kind]
	if !found {
		return "", false
	}
	return c.assignee(calendar.DaysBetween(Epoch, date), date)
}

// IsAssignee reports whether actor owns kind on date.
func IsAssignee(kind model.ChoreKind, date calendar.Date, actor model.Participant) bool {
	p, ok := Assign(kind, date)
	return ok && p == actor
}

type Assignment struct {
	Date        calendar.Date     `json:"date"`
	Kind        model.ChoreKind   `json:"chore_kind"`
	Label       string            `json:"label"`
	Participant model.Participant `json:"participant"`
}

// ForDate returns every chore scheduled on date, in model.ChoreKinds order.
func ForDate(date calendar.Date) []Assignment {
	var out []Assignment
	for _, kind := range model.ChoreKinds {
		if p, ok := Assign(kind, date); ok {
			out = append(out, Assignment{Date: date, Kind: kind, Label: kind.Label(), Participant: p})
		}
	}
	return out
}

// ForMonth returns every chore scheduled in the month containing first.
func ForMonth(first calendar.Date) []Assignment {
	var out []Assignment
	for _, d := range calendar.DaysInMonth(first) {
		out = append(out, ForDate(d)...)
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
