package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/printvend/printvend-api/config"
	"github.com/printvend/printvend-api/models"
	"github.com/printvend/printvend-api/utils"
)

// allowedMaterials is the closed set of filament types the vending
// service stocks.
var allowedMaterials = []string{"PLA", "PETG", "ABS", "TPU"}

// CreatePrintJobInput carries the validated fields for a new print job
type CreatePrintJobInput struct {
	Name             string
	Description      string
	Material         string
	FileURL          string
	FileName         string
	FileSize         int64
	Price            float64
	EstimatedMinutes int
	CustomerEmail    string
	CustomerPhone    *string
}

// JobFilter narrows and pages a print job listing
type JobFilter struct {
	Status        string
	CustomerEmail string
	Page          int
	PageSize      int
}

// IsValidMaterial checks if a material is one the service stocks
func IsValidMaterial(material string) bool {
	upper := strings.ToUpper(material)
	for _, m := range allowedMaterials {
		if upper == m {
			return true
		}
	}
	return false
}

// CreatePrintJob validates the input and creates a job in status pending
// together with its initial "Created" log entry, atomically.
func CreatePrintJob(input CreatePrintJobInput) (*models.PrintJob, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	job := models.PrintJob{
		Name:             input.Name,
		Description:      input.Description,
		Material:         strings.ToUpper(input.Material),
		FileURL:          input.FileURL,
		FileName:         input.FileName,
		FileSize:         input.FileSize,
		Price:            input.Price,
		EstimatedMinutes: input.EstimatedMinutes,
		Status:           models.StatusPending,
		CustomerEmail:    input.CustomerEmail,
		CustomerPhone:    input.CustomerPhone,
		Version:          1,
	}

	db := config.GetDB()
	err := withStorageRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&job).Error; err != nil {
				return err
			}
			entry := models.PrintJobLog{
				JobID:     job.ID,
				EventType: models.EventCreated,
				Message:   fmt.Sprintf("Print job %q created for %s", job.Name, job.CustomerEmail),
			}
			return tx.Create(&entry).Error
		})
	})
	if err != nil {
		return nil, NewDatabaseError("failed to create print job", err)
	}

	// Reload with logs so callers get the complete record
	return GetPrintJob(job.ID)
}

// GetPrintJob retrieves a job by id with its full log history, newest first
func GetPrintJob(id string) (*models.PrintJob, error) {
	db := config.GetDB()

	var job models.PrintJob
	err := withStorageRetry(func() error {
		return db.Preload("Logs", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at DESC, id DESC")
		}).First(&job, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError(CodeJobNotFound, "Print job not found")
		}
		return nil, NewDatabaseError("failed to load print job", err)
	}
	return &job, nil
}

// recentLogsPerJob is how many log entries each job carries in listings
const recentLogsPerJob = 5

// ListPrintJobs returns a page of jobs newest-first, optionally filtered
// by status and customer email, along with the total match count. Each
// returned job carries its five most recent log entries.
func ListPrintJobs(filter JobFilter) ([]models.PrintJob, int64, error) {
	if filter.Page < 1 {
		return nil, 0, NewValidationError("page must be at least 1")
	}
	maxPageSize := 100
	if cfg := config.GetConfig(); cfg != nil {
		maxPageSize = cfg.MaxPageSize
	}
	if filter.PageSize < 1 || filter.PageSize > maxPageSize {
		return nil, 0, NewValidationError("pageSize must be between 1 and %d", maxPageSize)
	}
	if filter.Status != "" && !models.IsValidJobStatus(models.JobStatus(filter.Status)) {
		return nil, 0, NewValidationError("unknown status %q", filter.Status)
	}

	db := config.GetDB()

	var total int64
	var jobs []models.PrintJob
	err := withStorageRetry(func() error {
		// Build the statement fresh per attempt; a retried attempt must
		// not stack clauses onto the previous one
		query := db.Model(&models.PrintJob{})
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.CustomerEmail != "" {
			query = query.Where("customer_email = ?", filter.CustomerEmail)
		}

		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return err
		}
		offset := (filter.Page - 1) * filter.PageSize
		return query.
			Preload("Logs", func(tx *gorm.DB) *gorm.DB {
				return tx.Order("created_at DESC, id DESC")
			}).
			Order("created_at DESC").
			Offset(offset).
			Limit(filter.PageSize).
			Find(&jobs).Error
	})
	if err != nil {
		return nil, 0, NewDatabaseError("failed to list print jobs", err)
	}

	// Preload can't limit per parent row, so trim here
	for i := range jobs {
		if len(jobs[i].Logs) > recentLogsPerJob {
			jobs[i].Logs = jobs[i].Logs[:recentLogsPerJob]
		}
	}
	return jobs, total, nil
}

// DeletePrintJob removes a job and all of its log entries in one
// transaction, then cleans up the stored model file best-effort.
func DeletePrintJob(id string) error {
	db := config.GetDB()

	var job models.PrintJob
	if err := db.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError(CodeJobNotFound, "Print job not found")
		}
		return NewDatabaseError("failed to load print job", err)
	}

	err := withStorageRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("job_id = ?", id).Delete(&models.PrintJobLog{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.PrintJob{}, "id = ?", id).Error
		})
	})
	if err != nil {
		return NewDatabaseError("failed to delete print job", err)
	}

	// The job row is gone; a dangling object in the bucket is acceptable,
	// the reverse is not
	if s3 := GetS3Service(); s3 != nil {
		if _, _, ok := utils.ParseS3URL(job.FileURL); ok {
			if err := s3.DeleteFile(job.FileURL); err != nil {
				log.Printf("Failed to delete model file for job %s: %v", id, err)
			}
		}
	}
	return nil
}

func validateCreateInput(input CreatePrintJobInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return NewValidationError("name is required")
	}
	if len(input.Name) > 255 {
		return NewValidationError("name must be at most 255 characters")
	}
	if strings.TrimSpace(input.Material) == "" {
		return NewValidationError("material is required")
	}
	if !IsValidMaterial(input.Material) {
		return NewValidationError("material must be one of %s", strings.Join(allowedMaterials, ", "))
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return NewValidationError("customerEmail is required")
	}
	if input.Price < 0 {
		return NewValidationError("price must not be negative")
	}
	if input.EstimatedMinutes < 0 {
		return NewValidationError("estimatedMinutes must not be negative")
	}
	if err := utils.ValidateFileReference(input.FileURL, input.FileName, input.FileSize); err != nil {
		return NewValidationError("%s", err.Error())
	}
	return nil
}
