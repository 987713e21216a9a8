package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/homedog/backend/database"
	"github.com/homedog/backend/models"
	"github.com/homedog/backend/services"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

func TestUploadWithGlobalToken(t *testing.T) {
	bus := &mockBus{}
	router := setupTest(t, &mockAnalyzer{}, bus)

	w := doUpload(router, testUploadToken, "cam1", "frame.jpg", "image/jpeg", jpegBytes)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		URL    string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.URL != "/uploads/cam1/frame.jpg" {
		t.Errorf("response = %+v", resp)
	}

	// File landed on disk
	if _, err := os.Stat(filepath.Join(cfg.UploadDir, "cam1", "frame.jpg")); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	// Event published on the per-device subject
	if len(bus.subjects) != 1 || bus.subjects[0] != "uploads.cam1" {
		t.Errorf("subjects = %v", bus.subjects)
	}
	var event services.UploadEvent
	if err := json.Unmarshal(bus.payloads[0], &event); err != nil {
		t.Fatal(err)
	}
	if event.DeviceID != "cam1" || event.URL != resp.URL {
		t.Errorf("event = %+v", event)
	}
}

func TestUploadWithDeviceToken(t *testing.T) {
	router := setupTest(t, &mockAnalyzer{}, nil)

	database.DB.Create(&models.Device{DeviceID: "cam1", UploadToken: "device-secret"})

	w := doUpload(router, "device-secret", "cam1", "", "image/jpeg", jpegBytes)
	if w.Code != http.StatusOK {
		t.Fatalf("device token rejected: %d %s", w.Code, w.Body.String())
	}

	device := loadDevice(t, "cam1")
	if device.LastImgURL == nil || device.LastImgTime == nil {
		t.Error("upload did not update device history")
	}
	if device.LastSeen == nil {
		t.Error("upload did not update last_seen")
	}
}

func TestUploadAuthMatrix(t *testing.T) {
	router := setupTest(t, &mockAnalyzer{}, nil)
	database.DB.Create(&models.Device{DeviceID: "cam1", UploadToken: "device-secret"})

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"wrong token", "nope", http.StatusUnauthorized},
		{"fleet token is not an upload token", testFleetToken, http.StatusUnauthorized},
		{"global token", testUploadToken, http.StatusOK},
		{"device token", "device-secret", http.StatusOK},
	}
	for _, tt := range tests {
		w := doUpload(router, tt.token, "cam1", "", "image/jpeg", jpegBytes)
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.want)
		}
	}
}

func TestUploadRejectsBadPayloads(t *testing.T) {
	router := setupTest(t, &mockAnalyzer{}, nil)

	w := doUpload(router, testUploadToken, "cam1", "frame.jpg", "text/plain", []byte("hello"))
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("wrong content type: status = %d, want 415", w.Code)
	}
	if _, err := os.Stat(filepath.Join(cfg.UploadDir, "cam1", "frame.jpg")); !os.IsNotExist(err) {
		t.Error("rejected upload must not leave a file behind")
	}

	w = doUpload(router, testUploadToken, "cam1", "", "image/jpeg", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body: status = %d, want 400", w.Code)
	}
}

func TestUploadHistoryCap(t *testing.T) {
	router := setupTest(t, &mockAnalyzer{}, nil)
	database.DB.Create(&models.Device{DeviceID: "cam1"})

	for i := 0; i < 25; i++ {
		w := doUpload(router, testUploadToken, "cam1", fmt.Sprintf("img_%d.jpg", i), "image/jpeg", jpegBytes)
		if w.Code != http.StatusOK {
			t.Fatalf("upload %d failed: %d", i, w.Code)
		}
	}

	device := loadDevice(t, "cam1")
	urls := models.SplitRecentImages(device.LastImgURLs)
	if len(urls) != models.RecentImageLimit {
		t.Fatalf("history length = %d, want %d", len(urls), models.RecentImageLimit)
	}
	if urls[0] != "/uploads/cam1/img_24.jpg" {
		t.Errorf("newest = %q", urls[0])
	}
	if device.LastImgURL == nil || *device.LastImgURL != "/uploads/cam1/img_24.jpg" {
		t.Error("last_img_url not tracking the newest upload")
	}
}

func TestUploadAnalysis(t *testing.T) {
	result := "a raccoon at the door"
	analyzer := &mockAnalyzer{result: &result}
	router := setupTest(t, analyzer, nil)
	database.DB.Create(&models.Device{DeviceID: "cam1"})

	w := doUpload(router, testUploadToken, "cam1", "", "image/jpeg", jpegBytes)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	device := loadDevice(t, "cam1")
	if device.LastAnalysis == nil || *device.LastAnalysis != result {
		t.Error("analysis not recorded")
	}
	if device.LastAnalysisTime == nil {
		t.Error("analysis time not recorded")
	}
	if len(analyzer.calls) != 1 {
		t.Fatalf("analyzer calls = %d", len(analyzer.calls))
	}
	if analyzer.calls[0].Model != "gemma3:12b" {
		t.Errorf("analyzer saw model %q, want fleet default", analyzer.calls[0].Model)
	}
}

func TestUploadAnalysisFailureStillSucceeds(t *testing.T) {
	router := setupTest(t, &mockAnalyzer{result: nil}, nil)
	database.DB.Create(&models.Device{DeviceID: "cam1"})

	w := doUpload(router, testUploadToken, "cam1", "", "image/jpeg", jpegBytes)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, analysis failure must not fail the upload", w.Code)
	}

	device := loadDevice(t, "cam1")
	if device.LastAnalysis != nil {
		t.Error("failed analysis must not record a result")
	}
	if device.LastImgURL == nil {
		t.Error("image history must still be recorded")
	}
}

func TestUploadUnknownDeviceStoresFile(t *testing.T) {
	router := setupTest(t, &mockAnalyzer{}, nil)

	// No row for this id and no X-Device-ID header at all
	w := doUpload(router, testUploadToken, "", "stray.jpg", "image/jpeg", jpegBytes)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if _, err := os.Stat(filepath.Join(cfg.UploadDir, "UNKNOWN", "stray.jpg")); err != nil {
		t.Errorf("file for unknown device missing: %v", err)
	}

	var count int64
	database.DB.Model(&models.Device{}).Count(&count)
	if count != 0 {
		t.Error("upload must not create device rows")
	}
}
