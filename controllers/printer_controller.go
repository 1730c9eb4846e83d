package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/printvend/printvend-api/models"
	"github.com/printvend/printvend-api/services"
)

// HeartbeatRequest represents a device status report
type HeartbeatRequest struct {
	Status          string  `json:"status" binding:"required"`
	CurrentMaterial string  `json:"current_material"`
	MaterialLevel   float64 `json:"material_level" binding:"omitempty,gte=0"`
	Temperature     float64 `json:"temperature"`
	ErrorMessage    string  `json:"error_message"`
}

// HeartbeatPrinter handles PUT /api/v1/printers/:id/heartbeat - creates
// or refreshes a printer record from a device report
func HeartbeatPrinter(c *gin.Context) {
	var req HeartbeatRequest
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

	printer, err := services.UpsertPrinter(c.Param("id"), services.HeartbeatInput{
		Status:          models.PrinterStatus(req.Status),
		CurrentMaterial: req.CurrentMaterial,
		MaterialLevel:   req.MaterialLevel,
		Temperature:     req.Temperature,
		ErrorMessage:    req.ErrorMessage,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    printer,
	})
}

// ListPrinters handles GET /api/v1/printers - lists all known printers
func ListPrinters(c *gin.Context) {
	printers, err := services.ListPrinters()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    printers,
	})
}

// GetPrinter handles GET /api/v1/printers/:id - returns one printer
func GetPrinter(c *gin.Context) {
	printer, err := services.GetPrinter(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    printer,
	})
}
