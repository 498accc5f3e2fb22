package model

import (
	"fmt"
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
)

// Participant is one of the two fixed household members.
type Participant string

const (
	P1 Participant = "p1"
	P2 Participant = "p2"
)

// Participants lists both members in display order.
var Participants = []Participant{P1, P2}

func (p Participant) Valid() bool {
	return p == P1 || p == P2
}

// Other returns the opposite participant.
func (p Participant) Other() Participant {
	if p == P1 {
		return P2
	}
	return P1
}

func ParseParticipant(s string) (Participant, error) {
	p := Participant(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown participant %q", s)
	}
	return p, nil
}

type Profile struct {
	Participant         Participant     `json:"participant"`
	DisplayName         string          `json:"display_name"`
	HasPassword         bool            `json:"has_password"`
	TutorialShown       bool            `json:"tutorial_shown"`
	FirstCompletionDone bool            `json:"first_completion_done"`
	Celebrations        []calendar.Date `json:"celebrations"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
