package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/printvend/printvend-api/models"
	"github.com/printvend/printvend-api/services"
)

// CreatePrintJobRequest represents the request body for creating a print job
type CreatePrintJobRequest struct {
	Name             string  `json:"name" binding:"required"`
	Description      string  `json:"description"`
	Material         string  `json:"material" binding:"required"`
	FileURL          string  `json:"file_url" binding:"required"`
	FileName         string  `json:"file_name"`
	FileSize         int64   `json:"file_size" binding:"omitempty,gte=0"`
	Price            float64 `json:"price" binding:"omitempty,gte=0"`
	EstimatedMinutes int     `json:"estimated_minutes" binding:"omitempty,gte=0"`
	CustomerEmail    string  `json:"customer_email" binding:"required,email"`
	CustomerPhone    *string `json:"customer_phone"`
}

// UpdateStatusRequest represents the request body for a lifecycle transition
type UpdateStatusRequest struct {
	Status          string  `json:"status" binding:"required"`
	Progress        *int    `json:"progress" binding:"omitempty,gte=0,lte=100"`
	PrinterID       *string `json:"printer_id"`
	FailureReason   *string `json:"failure_reason"`
	ExpectedVersion *uint   `json:"expected_version"`
	CausationID     *string `json:"causation_id"`
}

// CreatePrintJob handles POST /api/v1/printjobs - creates a new print job
func CreatePrintJob(c *gin.Context) {
	var req CreatePrintJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	job, err := services.CreatePrintJob(services.CreatePrintJobInput{
		Name:             req.Name,
		Description:      req.Description,
		Material:         req.Material,
		FileURL:          req.FileURL,
		FileName:         req.FileName,
		FileSize:         req.FileSize,
		Price:            req.Price,
		EstimatedMinutes: req.EstimatedMinutes,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	attachDownloadURL(job)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    job,
	})
}

// ListPrintJobs handles GET /api/v1/printjobs - lists jobs newest-first
// with optional status/customerEmail filters and page/pageSize paging
func ListPrintJobs(c *gin.Context) {
	page, err := parsePositiveInt(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "page must be a positive integer",
			},
		})
		return
	}
	pageSize, err := parsePositiveInt(c.DefaultQuery("pageSize", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "pageSize must be a positive integer",
			},
		})
		return
	}

	jobs, total, err := services.ListPrintJobs(services.JobFilter{
		Status:        c.Query("status"),
		CustomerEmail: c.Query("customerEmail"),
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	for i := range jobs {
		attachDownloadURL(&jobs[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    jobs,
		"meta": gin.H{
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

// GetPrintJob handles GET /api/v1/printjobs/:id - returns the full job
// with its complete log history, newest first
func GetPrintJob(c *gin.Context) {
	job, err := services.GetPrintJob(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	attachDownloadURL(job)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    job,
	})
}

// UpdatePrintJobStatus handles PUT /api/v1/printjobs/:id/status - applies
// a lifecycle transition
func UpdatePrintJobStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	err := services.UpdateJobStatus(c.Param("id"), services.UpdateStatusInput{
		Status:          models.JobStatus(req.Status),
		Progress:        req.Progress,
		PrinterID:       req.PrinterID,
		FailureReason:   req.FailureReason,
		ExpectedVersion: req.ExpectedVersion,
		CausationID:     req.CausationID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeletePrintJob handles DELETE /api/v1/printjobs/:id - removes the job
// and all of its log entries
func DeletePrintJob(c *gin.Context) {
	if err := services.DeletePrintJob(c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// attachDownloadURL fills the computed presigned URL for the job's model file
func attachDownloadURL(job *models.PrintJob) {
	s3 := services.GetS3Service()
	if s3 == nil {
		return
	}
	url, err := s3.GetPresignedURL(job.FileURL)
	if err != nil {
		log.Printf("Failed to presign file for job %s: %v", job.ID, err)
		return
	}
	job.DownloadURL = url
}

// respondServiceError maps a service error onto the HTTP error envelope
func respondServiceError(c *gin.Context, err error) {
	code := services.ErrorCode(err)
	message := "Internal server error"
	if se, ok := err.(*services.ServiceError); ok {
		message = se.Message
	}

	status := http.StatusInternalServerError
	switch {
	case code == services.CodeValidation:
		status = http.StatusBadRequest
	case services.IsNotFound(err):
		status = http.StatusNotFound
	case services.IsConflict(err):
		status = http.StatusConflict
	default:
		log.Printf("Request failed: %v", err)
		message = "Internal server error"
	}

	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func parsePositiveInt(value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return 0, strconv.ErrRange
	}
	return parsed, nil
}
