package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homedog/backend/database"
	"github.com/homedog/backend/models"
	"github.com/homedog/backend/services"
	"gorm.io/gorm"
)

// statusClientClosedRequest is the nginx convention for a client that went
// away mid-request. ESP32 cameras on flaky WiFi do this routinely.
const statusClientClosedRequest = 499

// PostUpload handles POST /upload
//
// Accepts a raw JPEG body. Identification is via the X-Device-ID header and
// auth via the upload token, which is checked independently of the fleet
// token. The id is intentionally permissive: an upload from an id without a
// row is stored on disk but produces no device record.
func PostUpload(c *gin.Context) {
	token := bearerToken(c)
	deviceID := strings.TrimSpace(c.GetHeader("X-Device-ID"))
	if deviceID == "" {
		deviceID = "UNKNOWN"
	}

	var device *models.Device
	var row models.Device
	err := database.DB.Where("device_id = ?", deviceID).First(&row).Error
	switch {
	case err == nil:
		device = &row
	case err != gorm.ErrRecordNotFound:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load device"})
		return
	}

	if !uploadAuthorized(token, device) {
		log.Printf("⚠️ [UPLOAD-401] Unauthorized for device %s from %s token=%s", deviceID, c.ClientIP(), truncateToken(token))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if !strings.Contains(c.GetHeader("Content-Type"), "image/jpeg") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Expecting image/jpeg"})
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(statusClientClosedRequest, gin.H{"error": "Client disconnected during upload"})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty body"})
		return
	}

	filePath, urlPath, ts, err := store.Save(deviceID, raw, c.GetHeader("X-File-Name"))
	if err != nil {
		log.Printf("⚠️ [UPLOAD] Failed to store image for %s: %v", deviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}

	var storedHistory *string
	if device != nil {
		storedHistory = device.LastImgURLs
	}
	history := models.PushRecentImage(storedHistory, urlPath)

	// Synchronous and best effort: a dead model just means no analysis.
	analysis := analyzer.Analyze(aiConfigFor(device), filePath, urlPath)

	patch := map[string]interface{}{
		"last_seen":     ts,
		"last_img_url":  urlPath,
		"last_img_time": ts,
		"last_img_urls": history,
	}
	if analysis != nil {
		patch["last_analysis"] = *analysis
		patch["last_analysis_time"] = time.Now().Unix()
	}
	// A no-op for ids without a row; the image still lives on disk.
	if err := database.DB.Model(&models.Device{}).Where("device_id = ?", deviceID).Updates(patch).Error; err != nil {
		log.Printf("⚠️ [UPLOAD] Failed to update device %s: %v", deviceID, err)
	}

	publishUploadEvent(deviceID, urlPath, ts, analysis)

	log.Printf("📷 [UPLOAD] %s -> %s (%d bytes, analysis=%t)", deviceID, urlPath, len(raw), analysis != nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "url": urlPath})
}

func publishUploadEvent(deviceID, urlPath string, ts int64, analysis *string) {
	if bus == nil {
		return
	}
	event := services.UploadEvent{
		DeviceID:  deviceID,
		URL:       urlPath,
		Timestamp: ts,
	}
	if analysis != nil {
		event.Analysis = *analysis
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	subject := "uploads." + services.SafeName(deviceID)
	if err := bus.Publish(subject, data); err != nil {
		log.Printf("⚠️ [UPLOAD] Failed to publish event for %s: %v", deviceID, err)
	}
}
