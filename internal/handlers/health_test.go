package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheck_BasicMode(t *testing.T) {
	t.Parallel()

	// Basic mode touches no dependencies, so a zero-value checker is enough
	h := NewHealthChecker(nil, nil, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", resp.Status)
	}
	if resp.Checks != nil {
		t.Errorf("Expected no checks in basic mode, got %v", resp.Checks)
	}
	if resp.Timestamp == "" {
		t.Error("Expected timestamp to be set")
	}
}
