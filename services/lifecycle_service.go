package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/printvend/printvend-api/config"
	"github.com/printvend/printvend-api/models"
)

// UpdateStatusInput carries a requested lifecycle transition.
// ExpectedVersion enables optimistic concurrency: when set, the update
// fails with a version conflict unless the job is still at that version.
// CausationID dedupes replayed reports: a second update carrying an
// already-seen causation id succeeds without mutating anything.
type UpdateStatusInput struct {
	Status          models.JobStatus
	Progress        *int
	PrinterID       *string
	FailureReason   *string
	ExpectedVersion *uint
	CausationID     *string
}

// UpdateJobStatus applies a lifecycle transition to a job. The job
// mutation and its StatusChanged log entry commit in one transaction;
// on any error the prior state stays committed. After a successful
// transition the configured notifier is informed best-effort.
func UpdateJobStatus(jobID string, input UpdateStatusInput) error {
	if !models.IsValidJobStatus(input.Status) {
		return NewValidationError("unknown status %q", input.Status)
	}
	if input.Progress != nil && (*input.Progress < 0 || *input.Progress > 100) {
		return NewValidationError("progress must be between 0 and 100")
	}
	if input.Status == models.StatusFailed && (input.FailureReason == nil || *input.FailureReason == "") {
		return NewValidationError("failureReason is required when failing a job")
	}

	db := config.GetDB()

	var (
		prior         models.JobStatus
		customerEmail string
		statusChanged bool
		printerID     string
		fileURL       string
		material      string
	)

	err := withStorageRetry(func() error {
		// Reset per attempt; a retried transaction starts from scratch
		statusChanged = false

		return db.Transaction(func(tx *gorm.DB) error {
			var job models.PrintJob
			if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return NewNotFoundError(CodeJobNotFound, "Print job not found")
				}
				return err
			}
			prior = job.Status
			customerEmail = job.CustomerEmail
			fileURL = job.FileURL
			material = job.Material
			if job.PrinterID != nil {
				printerID = *job.PrinterID
			}
			if input.PrinterID != nil && *input.PrinterID != "" {
				printerID = *input.PrinterID
			}

			// Duplicate report from the edge device: replay as success
			if input.CausationID != nil && *input.CausationID != "" {
				var seen int64
				if err := tx.Model(&models.PrintJobLog{}).
					Where("job_id = ? AND causation_id = ?", jobID, *input.CausationID).
					Count(&seen).Error; err != nil {
					return err
				}
				if seen > 0 {
					return nil
				}
			}

			if input.ExpectedVersion != nil && *input.ExpectedVersion != job.Version {
				return NewConflictError(CodeVersionConflict,
					"job is at version %d, expected %d", job.Version, *input.ExpectedVersion)
			}

			updates := map[string]interface{}{
				"version": job.Version + 1,
			}
			if input.Progress != nil {
				updates["progress"] = *input.Progress
			}
			if input.PrinterID != nil && *input.PrinterID != "" {
				if err := ensurePrinter(tx, *input.PrinterID); err != nil {
					return err
				}
				updates["printer_id"] = *input.PrinterID
			}

			if input.Status != prior {
				if !models.CanTransition(prior, input.Status) {
					return NewConflictError(CodeInvalidTransition,
						"cannot transition from %s to %s", prior, input.Status)
				}
				statusChanged = true
				updates["status"] = input.Status

				// Lifecycle timestamps are stamped exactly once
				now := time.Now().UTC()
				switch input.Status {
				case models.StatusPrinting:
					if job.StartedAt == nil {
						updates["started_at"] = now
					}
				case models.StatusCompleted:
					if job.CompletedAt == nil {
						updates["completed_at"] = now
					}
					updates["progress"] = 100
				case models.StatusFailed:
					if job.FailedAt == nil {
						updates["failed_at"] = now
					}
					updates["failure_reason"] = *input.FailureReason
				}
			}

			// Guarded write: a concurrent committer bumps the version and
			// zeroes our row count
			result := tx.Model(&models.PrintJob{}).
				Where("id = ? AND version = ?", jobID, job.Version).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return NewConflictError(CodeVersionConflict,
					"job was modified concurrently, retry with the current version")
			}

			if !statusChanged {
				// Progress/printer refresh only; no audit entry
				return nil
			}

			reason := ""
			if input.FailureReason != nil {
				reason = *input.FailureReason
			}
			payload := models.StatusChangePayload{From: prior, To: input.Status, Reason: reason}.Encode()
			entry := models.PrintJobLog{
				JobID:          jobID,
				EventType:      models.EventStatusChanged,
				Message:        fmt.Sprintf("Status changed from %s to %s", prior, input.Status),
				AdditionalData: &payload,
				CausationID:    input.CausationID,
			}
			return tx.Create(&entry).Error
		})
	})
	if err != nil {
		if se, ok := err.(*ServiceError); ok {
			return se
		}
		return NewDatabaseError("failed to update print job status", err)
	}

	if statusChanged {
		notifyStatusChanged(jobID, input.Status, customerEmail)
		dispatchStatusChanged(jobID, input.Status, printerID, fileURL, material)
	}
	return nil
}

// ensurePrinter materializes a printer row for a device reference the
// backend hasn't heard a heartbeat from yet.
func ensurePrinter(tx *gorm.DB, printerID string) error {
	printer := models.Printer{ID: printerID, Status: models.PrinterOffline}
	return tx.Where(models.Printer{ID: printerID}).FirstOrCreate(&printer).Error
}

// notifyStatusChanged publishes a lifecycle event to the notification
// bus. Delivery is best-effort: the transition is already committed and
// the bus owns retry semantics.
func notifyStatusChanged(jobID string, status models.JobStatus, customerEmail string) {
	notifier := GetNotifier()
	if notifier == nil {
		return
	}
	event := JobEvent{
		JobID:         jobID,
		Status:        status,
		CustomerEmail: customerEmail,
		OccurredAt:    time.Now().UTC(),
	}
	if err := notifier.PublishJobEvent(event); err != nil {
		log.Printf("Failed to publish status change for job %s: %v", jobID, err)
	}
}

// dispatchStatusChanged forwards the committed transition to the assigned
// printer: a queued job is sent out as a start message, a cancelled job
// as a cancel. Best-effort like the notifier; the edge device reports
// back over MQTT and those reports re-enter through the same contract.
func dispatchStatusChanged(jobID string, status models.JobStatus, printerID, fileURL, material string) {
	dispatcher := GetDispatcher()
	if dispatcher == nil || printerID == "" {
		return
	}

	var err error
	switch status {
	case models.StatusQueued:
		err = dispatcher.DispatchJob(printerID, jobID, fileURL, material)
	case models.StatusCancelled:
		err = dispatcher.CancelJob(printerID, jobID)
	default:
		return
	}
	if err != nil {
		log.Printf("Failed to dispatch %s for job %s to printer %s: %v", status, jobID, printerID, err)
	}
}
