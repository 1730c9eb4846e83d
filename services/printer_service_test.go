package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/printvend/printvend-api/models"
)

func TestUpsertPrinter_CreatesAndRefreshes(t *testing.T) {
	setupServiceTest(t)

	printer, err := UpsertPrinter("printer-001", HeartbeatInput{
		Status:          models.PrinterOnline,
		CurrentMaterial: "PLA",
		MaterialLevel:   82.5,
		Temperature:     24.1,
	})
	assert.NoError(t, err)
	assert.Equal(t, "printer-001", printer.ID)
	assert.Equal(t, models.PrinterOnline, printer.Status)
	assert.Equal(t, 82.5, printer.MaterialLevel)
	assert.WithinDuration(t, time.Now().UTC(), printer.LastSeen, 5*time.Second)

	firstSeen := printer.LastSeen

	// A later heartbeat updates the same row
	printer, err = UpsertPrinter("printer-001", HeartbeatInput{
		Status:          models.PrinterPrinting,
		CurrentMaterial: "PLA",
		MaterialLevel:   80.0,
		Temperature:     205.3,
	})
	assert.NoError(t, err)
	assert.Equal(t, models.PrinterPrinting, printer.Status)
	assert.Equal(t, 205.3, printer.Temperature)
	assert.False(t, printer.LastSeen.Before(firstSeen))

	printers, err := ListPrinters()
	assert.NoError(t, err)
	assert.Len(t, printers, 1)
}

func TestUpsertPrinter_Validation(t *testing.T) {
	setupServiceTest(t)

	_, err := UpsertPrinter("", HeartbeatInput{Status: models.PrinterOnline})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = UpsertPrinter("printer-001", HeartbeatInput{Status: "exploded"})
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestUpsertPrinter_RecordsErrorState(t *testing.T) {
	setupServiceTest(t)

	printer, err := UpsertPrinter("printer-002", HeartbeatInput{
		Status:       models.PrinterError,
		ErrorMessage: "thermistor disconnected",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.PrinterError, printer.Status)
	assert.Equal(t, "thermistor disconnected", printer.ErrorMessage)
}

func TestGetPrinter_NotFound(t *testing.T) {
	setupServiceTest(t)

	_, err := GetPrinter("printer-404")
	assert.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, CodePrinterNotFound, ErrorCode(err))
}

func TestListPrinters_Empty(t *testing.T) {
	setupServiceTest(t)

	printers, err := ListPrinters()
	assert.NoError(t, err)
	assert.Len(t, printers, 0)
}
