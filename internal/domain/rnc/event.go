package rnc

import "time"

type EventType string

const (
	EventCreated           EventType = "rnc_created"
	EventAnalysisCompleted EventType = "rnc_analysis_completed"
	EventReworkCompleted   EventType = "rnc_rework_completed"
	EventClosed            EventType = "rnc_closed"
	EventUpdated           EventType = "rnc_updated"
)

// Snapshot is the flattened view of a report pushed to live clients.
type Snapshot struct {
	ID                   uint64     `json:"id"`
	Number               uint64     `json:"num_rnc"`
	Title                string     `json:"title"`
	CriticalLevel        string     `json:"critical_level"`
	PartCode             string     `json:"part_code"`
	PartID               uint64     `json:"part_id"`
	Status               string     `json:"status"`
	Condition            string     `json:"condition"`
	DateOfOccurrence     time.Time  `json:"date_of_occurrence"`
	OpeningDate          time.Time  `json:"opening_date"`
	AnalysisDate         *time.Time `json:"analysis_date,omitempty"`
	ReworkDate           *time.Time `json:"rework_date,omitempty"`
	ClosingDate          *time.Time `json:"closing_date,omitempty"`
	OpenByID             uint64     `json:"open_by_id"`
	CurrentResponsibleID *uint64    `json:"current_responsible_id,omitempty"`
	ClosedByID           *uint64    `json:"closed_by_id,omitempty"`
	CloseRNC             bool       `json:"close_rnc"`
}

func NewSnapshot(r RNC) Snapshot {
	return Snapshot{
		ID:                   r.ID,
		Number:               r.Number,
		Title:                r.Title,
		CriticalLevel:        string(r.CriticalLevel),
		PartCode:             r.PartCode,
		PartID:               r.PartID,
		Status:               string(r.Status),
		Condition:            string(r.Condition),
		DateOfOccurrence:     r.DateOfOccurrence,
		OpeningDate:          r.OpeningDate,
		AnalysisDate:         r.AnalysisDate,
		ReworkDate:           r.ReworkDate,
		ClosingDate:          r.ClosingDate,
		OpenByID:             r.OpenByID,
		CurrentResponsibleID: r.CurrentResponsibleID,
		ClosedByID:           r.ClosedByID,
		CloseRNC:             r.IsClosed(),
	}
}

// Event is a committed workflow transition handed to the notifier.
type Event struct {
	Type EventType
	RNC  Snapshot
}
