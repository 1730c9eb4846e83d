package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/printvend/printvend-api/models"
	"github.com/printvend/printvend-api/services"
)

func setupPrinterRoutes() *gin.Engine {
	router := setupTestRouter()
	router.PUT("/printers/:id/heartbeat", HeartbeatPrinter)
	router.GET("/printers", ListPrinters)
	router.GET("/printers/:id", GetPrinter)
	return router
}

func TestHeartbeatPrinterEndpoint(t *testing.T) {
	setupControllerTestDB(t)

	tests := []struct {
		name           string
		printerID      string
		body           map[string]interface{}
		expectedStatus int
		expectedError  string
		checkResponse  func(t *testing.T, response map[string]interface{})
	}{
		{
			name:      "successfully register printer",
			printerID: "printer-001",
			body: map[string]interface{}{
				"status":           "online",
				"current_material": "PLA",
				"material_level":   92.5,
				"temperature":      24.0,
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				assert.True(t, response["success"].(bool))
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "printer-001", data["id"])
				assert.Equal(t, "online", data["status"])
				assert.Equal(t, "PLA", data["current_material"])
				assert.NotEmpty(t, data["last_seen"])
			},
		},
		{
			name:      "report error state",
			printerID: "printer-002",
			body: map[string]interface{}{
				"status":        "error",
				"error_message": "thermistor disconnected",
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "error", data["status"])
				assert.Equal(t, "thermistor disconnected", data["error_message"])
			},
		},
		{
			name:           "fail with missing status",
			printerID:      "printer-001",
			body:           map[string]interface{}{"temperature": 24.0},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "fail with unknown status",
			printerID:      "printer-001",
			body:           map[string]interface{}{"status": "exploded"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupPrinterRoutes()

			w := doJSON(router, http.MethodPut, "/printers/"+tt.printerID+"/heartbeat", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)

			if tt.expectedError != "" {
				assert.False(t, response["success"].(bool))
				errorData := response["error"].(map[string]interface{})
				assert.Equal(t, tt.expectedError, errorData["code"])
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, response)
			}
		})
	}
}

func TestGetPrinterEndpoint(t *testing.T) {
	setupControllerTestDB(t)
	router := setupPrinterRoutes()

	_, err := services.UpsertPrinter("printer-001", services.HeartbeatInput{
		Status: models.PrinterOnline,
	})
	assert.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/printers/printer-001", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "printer-001", data["id"])

	w = doJSON(router, http.MethodGet, "/printers/printer-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	json.Unmarshal(w.Body.Bytes(), &response)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "PRINTER_NOT_FOUND", errorData["code"])
}

func TestListPrintersEndpoint(t *testing.T) {
	setupControllerTestDB(t)
	router := setupPrinterRoutes()

	w := doJSON(router, http.MethodGet, "/printers", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response["data"].([]interface{}), 0)

	for _, id := range []string{"printer-001", "printer-002"} {
		_, err := services.UpsertPrinter(id, services.HeartbeatInput{Status: models.PrinterOnline})
		assert.NoError(t, err)
	}

	w = doJSON(router, http.MethodGet, "/printers", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response["data"].([]interface{}), 2)
}
