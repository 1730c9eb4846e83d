package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/printvend/printvend-api/config"
	"github.com/printvend/printvend-api/models"
)

// HeartbeatInput is a device status report, arriving either over MQTT or
// through the heartbeat endpoint.
type HeartbeatInput struct {
	Status          models.PrinterStatus
	CurrentMaterial string
	MaterialLevel   float64
	Temperature     float64
	ErrorMessage    string
}

// UpsertPrinter creates or refreshes a printer record from a device
// report and stamps LastSeen.
func UpsertPrinter(id string, input HeartbeatInput) (*models.Printer, error) {
	if id == "" {
		return nil, NewValidationError("printer id is required")
	}
	if !models.IsValidPrinterStatus(input.Status) {
		return nil, NewValidationError("unknown printer status %q", input.Status)
	}

	db := config.GetDB()
	printer := models.Printer{ID: id}

	err := withStorageRetry(func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where(models.Printer{ID: id}).FirstOrCreate(&printer).Error; err != nil {
				return err
			}
			return tx.Model(&printer).Updates(map[string]interface{}{
				"status":           input.Status,
				"current_material": input.CurrentMaterial,
				"material_level":   input.MaterialLevel,
				"temperature":      input.Temperature,
				"error_message":    input.ErrorMessage,
				"last_seen":        time.Now().UTC(),
			}).Error
		})
	})
	if err != nil {
		return nil, NewDatabaseError("failed to upsert printer", err)
	}

	if err := db.First(&printer, "id = ?", id).Error; err != nil {
		return nil, NewDatabaseError("failed to reload printer", err)
	}
	return &printer, nil
}

// GetPrinter retrieves a printer by its device-assigned id
func GetPrinter(id string) (*models.Printer, error) {
	db := config.GetDB()

	var printer models.Printer
	err := withStorageRetry(func() error {
		return db.First(&printer, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError(CodePrinterNotFound, "Printer not found")
		}
		return nil, NewDatabaseError("failed to load printer", err)
	}
	return &printer, nil
}

// ListPrinters returns all known printers, most recently seen first
func ListPrinters() ([]models.Printer, error) {
	db := config.GetDB()

	var printers []models.Printer
	err := withStorageRetry(func() error {
		return db.Order("last_seen DESC").Find(&printers).Error
	})
	if err != nil {
		return nil, NewDatabaseError("failed to list printers", err)
	}
	return printers, nil
}
