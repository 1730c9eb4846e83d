package models

import (
	"encoding/json"
	"time"
)

// Event type tags for print job log entries
const (
	EventCreated       = "Created"
	EventStatusChanged = "StatusChanged"
)

// PrintJobLog is an append-only audit entry for a print job.
// Entries are immutable once written and displayed newest-first.
type PrintJobLog struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	JobID          string  `gorm:"not null;size:36;index;index:idx_log_job_causation,unique" json:"job_id"`
	EventType      string  `gorm:"not null;size:64" json:"event_type"`
	Message        string  `gorm:"type:text;not null" json:"message"`
	AdditionalData *string `gorm:"type:text" json:"additional_data,omitempty"`
	// CausationID dedupes replayed status reports from the edge device.
	// Unique per job; null for entries without a causation source.
	CausationID *string   `gorm:"size:128;index:idx_log_job_causation,unique" json:"causation_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the PrintJobLog model
func (PrintJobLog) TableName() string {
	return "print_job_logs"
}

// StatusChangePayload is the structured additional data carried by a
// StatusChanged log entry.
type StatusChangePayload struct {
	From   JobStatus `json:"from"`
	To     JobStatus `json:"to"`
	Reason string    `json:"reason,omitempty"`
}

// Encode serializes the payload for storage in AdditionalData
func (p StatusChangePayload) Encode() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeStatusChange parses a StatusChanged payload from a log entry's
// raw AdditionalData. Returns false when the data is not a structured
// payload, in which case callers should treat it as a plain string.
func DecodeStatusChange(raw string) (StatusChangePayload, bool) {
	var p StatusChangePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return StatusChangePayload{}, false
	}
	if p.From == "" && p.To == "" {
		return StatusChangePayload{}, false
	}
	return p, true
}
