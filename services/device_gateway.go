package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/printvend/printvend-api/config"
	"github.com/printvend/printvend-api/models"
)

// MQTT topics shared with the edge client. The wildcard segment is the
// device-assigned printer id; topicJobsFormat is the per-printer topic
// the backend publishes work assignments to.
const (
	topicJobStatus     = "3dprinter/+/job_status"
	topicPrinterStatus = "3dprinter/+/status"
	topicJobsFormat    = "3dprinter/%s/jobs"
)

// jobStatusReport is the job progress payload the edge client publishes.
// Progress is a pointer so a report that omits it doesn't overwrite the
// recorded value with zero.
type jobStatusReport struct {
	JobID     string `json:"job_id"`
	PrinterID string `json:"printer_id"`
	Status    string `json:"status"`
	Progress  *int   `json:"progress"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// jobDispatch is the assignment payload the backend publishes to a
// printer's jobs topic. The edge client switches on Type.
type jobDispatch struct {
	Type     string `json:"type"`
	JobID    string `json:"job_id"`
	FileURL  string `json:"file_url,omitempty"`
	Material string `json:"material,omitempty"`
}

// printerStatusReport is the heartbeat payload the edge client publishes
type printerStatusReport struct {
	PrinterID       string  `json:"printer_id"`
	Status          string  `json:"status"`
	Temperature     float64 `json:"temperature"`
	MaterialLevel   float64 `json:"material_level"`
	CurrentMaterial string  `json:"current_material"`
	ErrorMessage    string  `json:"error_message"`
	Timestamp       string  `json:"timestamp"`
}

// DispatcherInterface sends work to printer-attached edge devices
type DispatcherInterface interface {
	DispatchJob(printerID, jobID, fileURL, material string) error
	CancelJob(printerID, jobID string) error
}

var dispatcherInstance DispatcherInterface

// GetDispatcher returns the current dispatcher instance
func GetDispatcher() DispatcherInterface {
	return dispatcherInstance
}

// SetDispatcher sets the dispatcher instance (primarily for testing)
func SetDispatcher(d DispatcherInterface) {
	dispatcherInstance = d
}

// DeviceGateway bridges edge-device MQTT traffic and the job lifecycle:
// inbound reports go through the same lifecycle contract as API calls,
// outbound assignments go to the per-printer jobs topic.
type DeviceGateway struct {
	client mqtt.Client
}

// StartDeviceGateway connects to the MQTT broker and subscribes to the
// edge-device topics. Returns an error when the broker is unreachable.
func StartDeviceGateway(cfg *config.Config) (*DeviceGateway, error) {
	gateway := &DeviceGateway{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	opts.OnConnect = func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker %s", cfg.MQTTBrokerURL)
		subscriptions := map[string]mqtt.MessageHandler{
			topicJobStatus:     gateway.handleJobStatus,
			topicPrinterStatus: gateway.handlePrinterStatus,
		}
		for topic, handler := range subscriptions {
			if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
				log.Printf("Failed to subscribe to %s: %v", topic, token.Error())
				continue
			}
			log.Printf("Subscribed to %s", topic)
		}
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("Lost connection to MQTT broker: %v", err)
	}

	gateway.client = mqtt.NewClient(opts)
	if token := gateway.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	SetDispatcher(gateway)
	return gateway, nil
}

// Stop disconnects from the broker
func (g *DeviceGateway) Stop() {
	if GetDispatcher() == g {
		SetDispatcher(nil)
	}
	if g.client != nil && g.client.IsConnected() {
		g.client.Disconnect(250)
	}
}

// DispatchJob tells a printer to start printing a job
func (g *DeviceGateway) DispatchJob(printerID, jobID, fileURL, material string) error {
	return g.publishDispatch(printerID, jobDispatch{
		Type:     "start",
		JobID:    jobID,
		FileURL:  fileURL,
		Material: material,
	})
}

// CancelJob tells a printer to abandon a job
func (g *DeviceGateway) CancelJob(printerID, jobID string) error {
	return g.publishDispatch(printerID, jobDispatch{Type: "cancel", JobID: jobID})
}

func (g *DeviceGateway) publishDispatch(printerID string, dispatch jobDispatch) error {
	payload, err := json.Marshal(dispatch)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf(topicJobsFormat, printerID)
	if token := g.client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// handleJobStatus applies an edge job report through the lifecycle
// controller. Malformed payloads are logged and dropped; duplicate
// reports replay as no-ops via the causation id.
func (g *DeviceGateway) handleJobStatus(_ mqtt.Client, msg mqtt.Message) {
	var report jobStatusReport
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		log.Printf("Dropping malformed job status on %s: %v", msg.Topic(), err)
		return
	}
	if report.JobID == "" {
		log.Printf("Dropping job status without job_id on %s", msg.Topic())
		return
	}

	status, ok := mapEdgeJobStatus(report.Status)
	if !ok {
		log.Printf("Dropping job status with unknown status %q for job %s", report.Status, report.JobID)
		return
	}

	input := UpdateStatusInput{
		Status:   status,
		Progress: report.Progress,
	}
	// Only timestamped reports get a causation id; without the timestamp
	// distinct reports would collapse onto one id and dedupe each other
	if report.Timestamp != "" {
		causation := fmt.Sprintf("%s:%s:%s", report.PrinterID, report.JobID, report.Timestamp)
		input.CausationID = &causation
	}
	if report.PrinterID != "" {
		input.PrinterID = &report.PrinterID
	}
	if status == models.StatusFailed {
		reason := report.Error
		if reason == "" {
			reason = "edge device reported failure"
		}
		input.FailureReason = &reason
	}

	if err := UpdateJobStatus(report.JobID, input); err != nil {
		if IsConflict(err) {
			// Out-of-order or stale edge report; the committed state wins
			log.Printf("Ignoring stale edge report for job %s: %v", report.JobID, err)
			return
		}
		log.Printf("Failed to apply edge report for job %s: %v", report.JobID, err)
	}
}

// handlePrinterStatus upserts the printer record from a device heartbeat
func (g *DeviceGateway) handlePrinterStatus(_ mqtt.Client, msg mqtt.Message) {
	var report printerStatusReport
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		log.Printf("Dropping malformed printer status on %s: %v", msg.Topic(), err)
		return
	}

	printerID := report.PrinterID
	if printerID == "" {
		// Fall back to the topic segment: 3dprinter/{printer_id}/status
		parts := strings.Split(msg.Topic(), "/")
		if len(parts) == 3 {
			printerID = parts[1]
		}
	}
	if printerID == "" {
		log.Printf("Dropping printer status without printer_id on %s", msg.Topic())
		return
	}

	_, err := UpsertPrinter(printerID, HeartbeatInput{
		Status:          models.PrinterStatus(report.Status),
		CurrentMaterial: report.CurrentMaterial,
		MaterialLevel:   report.MaterialLevel,
		Temperature:     report.Temperature,
		ErrorMessage:    report.ErrorMessage,
	})
	if err != nil {
		log.Printf("Failed to apply heartbeat for printer %s: %v", printerID, err)
	}
}

// mapEdgeJobStatus maps the status strings the edge client publishes
// onto job lifecycle statuses.
func mapEdgeJobStatus(status string) (models.JobStatus, bool) {
	switch strings.ToLower(status) {
	case "queued":
		return models.StatusQueued, true
	case "printing":
		return models.StatusPrinting, true
	case "completed":
		return models.StatusCompleted, true
	case "failed":
		return models.StatusFailed, true
	case "cancelled", "canceled":
		return models.StatusCancelled, true
	}
	return "", false
}
