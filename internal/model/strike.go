package model

import "time"

type Strike struct {
	ID           int64        `json:"id"`
	IssuedBy     Participant  `json:"issued_by"`
	IssuedTo     Participant  `json:"issued_to"`
	OccurrenceID *int64       `json:"occurrence_id"`
	Reason       string       `json:"reason"`
	Attachments  []Attachment `json:"attachments"`
	Month        string       `json:"month"`
	CreatedAt    time.Time    `json:"created_at"`
}
