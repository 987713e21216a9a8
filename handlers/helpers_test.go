package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/homedog/backend/config"
	"github.com/homedog/backend/database"
	"github.com/homedog/backend/models"
	"github.com/homedog/backend/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testFleetToken  = "fleet-secret"
	testUploadToken = "global-upload"
)

// mockAnalyzer records calls and returns a canned result.
type mockAnalyzer struct {
	mu        sync.Mutex
	result    *string
	reachable bool
	calls     []services.AIConfig
}

func (m *mockAnalyzer) Analyze(cfg services.AIConfig, filePath, urlPath string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cfg)
	return m.result
}

func (m *mockAnalyzer) CheckReachable(host string) bool {
	return m.reachable
}

// mockBus captures published events.
type mockBus struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (m *mockBus) Publish(subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	m.payloads = append(m.payloads, append([]byte(nil), data...))
	return nil
}

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Device{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	database.DB = db
}

// setupTest wires the handler package against a throwaway database and mocks,
// and returns a router with the production routes.
func setupTest(t *testing.T, analyzer Analyzer, bus Publisher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	setupTestDB(t)

	cfg := config.Config{
		BackendToken:        testFleetToken,
		UploadToken:         testUploadToken,
		UploadDir:           t.TempDir(),
		DefaultAIHost:       "http://ai.test:11434",
		DefaultAIModel:      "gemma3:12b",
		DefaultAIPrompt:     "describe {url}",
		DefaultAINumCtx:     1024,
		DefaultAINumPredict: 64,
	}
	Init(cfg, services.NewImageStore(cfg.UploadDir), analyzer, bus)

	router := gin.New()
	router.POST("/upload", PostUpload)
	router.POST("/api/register", RegisterDevice)
	router.GET("/api/config", GetDeviceConfig)
	router.GET("/api/admin/devices", GetDevices)
	router.GET("/api/admin/device/:id", GetDevice)
	router.POST("/api/admin/device/:id/config", UpdateDeviceConfig)
	return router
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doUpload(router *gin.Engine, token, deviceID, fileName, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if deviceID != "" {
		req.Header.Set("X-Device-ID", deviceID)
	}
	if fileName != "" {
		req.Header.Set("X-File-Name", fileName)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loadDevice(t *testing.T, id string) models.Device {
	t.Helper()
	var device models.Device
	if err := database.DB.Where("device_id = ?", id).First(&device).Error; err != nil {
		t.Fatalf("failed to load device %s: %v", id, err)
	}
	return device
}
