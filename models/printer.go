package models

import "time"

// PrinterStatus is the reported state of a physical printer
type PrinterStatus string

const (
	PrinterOffline     PrinterStatus = "offline"
	PrinterOnline      PrinterStatus = "online"
	PrinterPrinting    PrinterStatus = "printing"
	PrinterPaused      PrinterStatus = "paused"
	PrinterError       PrinterStatus = "error"
	PrinterMaintenance PrinterStatus = "maintenance"
)

// IsValidPrinterStatus checks if a status string is a known printer status
func IsValidPrinterStatus(status PrinterStatus) bool {
	switch status {
	case PrinterOffline, PrinterOnline, PrinterPrinting, PrinterPaused, PrinterError, PrinterMaintenance:
		return true
	}
	return false
}

// Printer represents a physical printer-attached edge device.
// Rows are created and refreshed by device heartbeat messages, never by
// the web frontend.
type Printer struct {
	ID              string        `gorm:"primaryKey;size:64" json:"id"` // device-assigned, e.g. "printer-001"
	Status          PrinterStatus `gorm:"not null;default:'offline'" json:"status"`
	CurrentMaterial string        `gorm:"size:64" json:"current_material"`
	MaterialLevel   float64       `json:"material_level"`
	Temperature     float64       `json:"temperature"`
	ErrorMessage    string        `json:"error_message"`
	LastSeen        time.Time     `json:"last_seen"`
	Jobs            []PrintJob    `gorm:"foreignKey:PrinterID" json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the Printer model
func (Printer) TableName() string {
	return "printers"
}
