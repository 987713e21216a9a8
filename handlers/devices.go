package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homedog/backend/database"
	"github.com/homedog/backend/models"
	"gorm.io/gorm"
)

// RegisterRequest is the identity payload a device sends at boot.
type RegisterRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
	UniqueID string `json:"uniqueId"`
	FW       string `json:"fw"`
	IP       string `json:"ip"`
	RSSI     int    `json:"rssi"`
	Model    string `json:"model"`

	// Hardware details, logged for diagnostics but not persisted
	ChipModel string `json:"chipModel"`
	ChipRev   int    `json:"chipRev"`
	Cores     int    `json:"cores"`
	PSRAM     int64  `json:"psram"`
	FlashSize int64  `json:"flashSize"`
	SDK       string `json:"sdk"`
}

// RegisterDevice handles POST /api/register
func RegisterDevice(c *gin.Context) {
	if !requireFleetToken(c) {
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deviceId is required"})
		return
	}

	ip := req.IP
	if ip == "" {
		ip = c.ClientIP()
	}
	model := req.Model
	if model == "" {
		model = "ESP32-CAM"
	}
	now := time.Now().Unix()

	var device models.Device
	err := database.DB.Where("device_id = ?", deviceID).First(&device).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		device = models.Device{
			DeviceID:  deviceID,
			FW:        req.FW,
			IP:        ip,
			RSSI:      req.RSSI,
			Model:     model,
			LastSeen:  &now,
			ConfigRev: 1,
			UploadURL: baseURL(c) + "/upload",
		}
		if err := database.DB.Create(&device).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
			return
		}
		log.Printf("📷 [REGISTER] New device %s model=%s fw=%s ip=%s", deviceID, model, req.FW, ip)

	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
		return

	default:
		patch := map[string]interface{}{
			"fw":        req.FW,
			"ip":        ip,
			"rssi":      req.RSSI,
			"model":     model,
			"last_seen": now,
		}
		// The upload URL is provisioned on first contact and then left alone
		// so an admin-assigned URL survives re-registration.
		if device.UploadURL == "" {
			patch["upload_url"] = baseURL(c) + "/upload"
		}
		if err := database.DB.Model(&device).Updates(patch).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register device"})
			return
		}
		log.Printf("📷 [REGISTER] Device %s checked in fw=%s ip=%s rssi=%d", deviceID, req.FW, ip, req.RSSI)
	}

	if req.UniqueID != "" || req.ChipModel != "" {
		log.Printf("📷 [REGISTER] %s hardware: uniqueId=%s chip=%s rev=%d cores=%d psram=%d flash=%d sdk=%s",
			deviceID, req.UniqueID, req.ChipModel, req.ChipRev, req.Cores, req.PSRAM, req.FlashSize, req.SDK)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetDeviceConfig handles GET /api/config
//
// Devices poll this endpoint with their current config revision. Unknown
// device ids are auto-provisioned so a freshly flashed camera starts working
// without a manual registration step.
func GetDeviceConfig(c *gin.Context) {
	if !requireFleetToken(c) {
		return
	}

	deviceID := strings.TrimSpace(c.Query("deviceId"))
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deviceId is required"})
		return
	}
	// The device also reports its current rev; accepted for future
	// conditional responses, currently the full config is always returned.
	_ = c.Query("rev")

	now := time.Now().Unix()

	var device models.Device
	err := database.DB.Where("device_id = ?", deviceID).First(&device).Error
	if err == gorm.ErrRecordNotFound {
		device = models.Device{
			DeviceID:  deviceID,
			IP:        c.ClientIP(),
			Model:     "ESP32-CAM",
			LastSeen:  &now,
			ConfigRev: 1,
		}
		if err := database.DB.Create(&device).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to provision device"})
			return
		}
		log.Printf("📷 [CONFIG] Auto-provisioned device %s from %s", deviceID, c.ClientIP())
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load device"})
		return
	}

	uploadURL := device.UploadURL
	if uploadURL == "" {
		uploadURL = baseURL(c) + "/upload"
	}
	uploadToken := device.UploadToken
	if uploadToken == "" {
		uploadToken = cfg.UploadToken
	}

	// First write wins: once stored, the routing pair stays stable even when
	// the fleet defaults change underneath.
	patch := map[string]interface{}{
		"last_seen":    now,
		"upload_url":   uploadURL,
		"upload_token": uploadToken,
	}
	if err := database.DB.Model(&device).Updates(patch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update device"})
		return
	}

	resolved := device.Resolve(aiDefaults())
	resolved.UploadURL = uploadURL
	resolved.UploadToken = uploadToken

	c.JSON(http.StatusOK, resolved)
}
