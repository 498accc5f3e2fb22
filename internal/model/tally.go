package model

import (
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
)

type TrashTally struct {
	ID                int64          `json:"id"`
	Participant       Participant    `json:"participant"`
	Month             string         `json:"month"`
	Count             int            `json:"count"`
	LastIncrementDate *calendar.Date `json:"last_increment_date"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IncrementedOn reports whether the last increment happened on d.
func (t *TrashTally) IncrementedOn(d calendar.Date) bool {
	return t != nil && t.LastIncrementDate != nil && t.LastIncrementDate.Equal(d)
}
