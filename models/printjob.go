package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus is the lifecycle state of a print job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusQueued    JobStatus = "queued"
	StatusPrinting  JobStatus = "printing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// allowedTransitions is the closed transition graph for job statuses.
// Printing is reachable straight from pending because an idle printer
// picks up unqueued jobs immediately; failed is reachable from queued
// because the edge device can fail a job before the print starts
// (e.g. file download error).
var allowedTransitions = map[JobStatus][]JobStatus{
	StatusPending:  {StatusQueued, StatusPrinting, StatusCancelled},
	StatusQueued:   {StatusPrinting, StatusFailed, StatusCancelled},
	StatusPrinting: {StatusCompleted, StatusFailed, StatusCancelled},
}

// IsValidJobStatus checks if a status string is a known job status
func IsValidJobStatus(status JobStatus) bool {
	switch status {
	case StatusPending, StatusQueued, StatusPrinting, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether the transition from -> to is allowed
func CanTransition(from, to JobStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PrintJob represents a customer-submitted print job
type PrintJob struct {
	ID               string        `gorm:"primaryKey;size:36" json:"id"`
	Name             string        `gorm:"not null;size:255" json:"name"`
	Description      string        `gorm:"type:text" json:"description"`
	Material         string        `gorm:"not null;size:64" json:"material"` // PLA, PETG, ABS, TPU
	FileURL          string        `gorm:"not null" json:"file_url"`         // opaque object storage reference
	FileName         string        `gorm:"size:255" json:"file_name"`
	FileSize         int64         `json:"file_size"`
	Price            float64       `json:"price"`
	EstimatedMinutes int           `json:"estimated_minutes"`
	Status           JobStatus     `gorm:"not null;default:'pending';index" json:"status"`
	PrinterID        *string       `gorm:"size:64;index" json:"printer_id"`
	Progress         int           `gorm:"not null;default:0" json:"progress"` // 0-100
	FailureReason    *string       `json:"failure_reason,omitempty"`
	CustomerEmail    string        `gorm:"not null;size:255;index" json:"customer_email"`
	CustomerPhone    *string       `gorm:"size:32" json:"customer_phone,omitempty"`
	Version          uint          `gorm:"not null;default:1" json:"version"`
	DownloadURL      string        `gorm:"-" json:"download_url,omitempty"` // computed field, presigned URL for the model file
	StartedAt        *time.Time    `json:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at"`
	FailedAt         *time.Time    `json:"failed_at"`
	Logs             []PrintJobLog `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the PrintJob model
func (PrintJob) TableName() string {
	return "print_jobs"
}

// BeforeCreate assigns a UUID if the job doesn't have one yet
func (j *PrintJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
