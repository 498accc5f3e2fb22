// Package reward decides when to show a celebration to the reward-eligible
// participant after they finish a chore or take out the trash.
package reward

import (
	"math/rand/v2"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
)

const (
	DefaultChance    = 0.3
	DefaultWeeklyCap = 2
)

// RandSource yields floats in [0, 1).
type RandSource interface {
	Float64() float64
}

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }

// SystemRand is the production random source.
var SystemRand RandSource = systemRand{}

// Trigger holds the celebration rules. Chance and WeeklyCap are used as
// given, so zero disables the random celebration; NewTrigger fills in the
// defaults. A nil Source draws from SystemRand.
type Trigger struct {
	Eligible  model.Participant
	Source    RandSource
	Chance    float64
	WeeklyCap int
}

func NewTrigger(eligible model.Participant, src RandSource) *Trigger {
	return &Trigger{Eligible: eligible, Source: src, Chance: DefaultChance, WeeklyCap: DefaultWeeklyCap}
}

// ShouldCelebrate reports whether p gets a celebration today. The first
// completion always celebrates; after that at most one per day and
// WeeklyCap per Sunday-started week, each with probability Chance.
func (t *Trigger) ShouldCelebrate(p model.Participant, history []calendar.Date, firstCompletionDone bool, today calendar.Date) bool {
	if p != t.Eligible {
		return false
	}
	if !firstCompletionDone {
		return true
	}

	weekStart := calendar.WeekStart(today)
	thisWeek := 0
	for _, d := range history {
		if d.Equal(today) {
			return false
		}
		if !d.Before(weekStart) && !d.After(today) {
			thisWeek++
		}
	}
	if thisWeek >= t.WeeklyCap || t.Chance <= 0 {
		return false
	}
	return t.source().Float64() < t.Chance
}

func (t *Trigger) source() RandSource {
	if t.Source == nil {
		return SystemRand
	}
	return t.Source
}
