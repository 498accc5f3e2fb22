package model

import (
	"fmt"
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
)

// ChoreKind is one of the four built-in recurring chores.
type ChoreKind string

const (
	ChoreSweeping ChoreKind = "sweeping_mopping"
	ChoreKitchen  ChoreKind = "kitchen_cleaning"
	ChoreVeranda  ChoreKind = "veranda_cleaning"
	ChoreToilet   ChoreKind = "toilet_bathroom"
)

// ChoreKinds lists every chore kind in display order.
var ChoreKinds = []ChoreKind{ChoreSweeping, ChoreKitchen, ChoreVeranda, ChoreToilet}

var choreLabels = map[ChoreKind]string{
	ChoreSweeping: "Sweeping & Mopping",
	ChoreKitchen:  "Kitchen Cleaning",
	ChoreVeranda:  "Veranda Cleaning",
	ChoreToilet:   "Toilet & Bathroom",
}

func (k ChoreKind) Valid() bool {
	_, ok := choreLabels[k]
	return ok
}

func (k ChoreKind) Label() string {
	return choreLabels[k]
}

func ParseChoreKind(s string) (ChoreKind, error) {
	k := ChoreKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown chore kind %q", s)
	}
	return k, nil
}

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
)

func (k AttachmentKind) Valid() bool {
	return k == AttachmentImage || k == AttachmentVideo
}

type Attachment struct {
	ID   string         `json:"id"`
	Kind AttachmentKind `json:"kind"`
	Ref  string         `json:"ref"`
	Name string         `json:"name"`
}

type Comment struct {
	ID           string       `json:"id"`
	OccurrenceID int64        `json:"occurrence_id"`
	Author       Participant  `json:"author"`
	Text         string       `json:"text"`
	Attachments  []Attachment `json:"attachments"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Occurrence is the record of one chore kind on one date. ID is zero for an
// occurrence that has not been persisted yet.
type Occurrence struct {
	ID          int64         `json:"id"`
	Date        calendar.Date `json:"date"`
	Kind        ChoreKind     `json:"chore_kind"`
	Completed   bool          `json:"completed"`
	CompletedBy *Participant  `json:"completed_by"`
	CompletedAt *time.Time    `json:"completed_at"`
	Comments    []Comment     `json:"comments"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (o *Occurrence) Persisted() bool {
	return o != nil && o.ID != 0
}
