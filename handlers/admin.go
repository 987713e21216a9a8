package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/homedog/backend/database"
	"github.com/homedog/backend/models"
	"gorm.io/gorm"
)

// DeviceView is the admin-facing projection of a device: identity, liveness,
// the resolved effective config and the upload history. The upload token is
// deliberately absent.
type DeviceView struct {
	DeviceID string `json:"deviceId"`
	FW       string `json:"fw"`
	IP       string `json:"ip"`
	RSSI     int    `json:"rssi"`
	Model    string `json:"model"`
	LastSeen *int64 `json:"lastSeen"`

	Rev               int    `json:"rev"`
	Framesize         string `json:"framesize"`
	JpegQuality       int    `json:"jpegQuality"`
	UploadIntervalSec int    `json:"uploadIntervalSec"`
	UploadURL         string `json:"uploadUrl"`
	AutoUpload        bool   `json:"autoUpload"`

	Whitebal      bool `json:"whitebal"`
	WbMode        int  `json:"wbMode"`
	Hmirror       bool `json:"hmirror"`
	Vflip         bool `json:"vflip"`
	Brightness    int  `json:"brightness"`
	Contrast      int  `json:"contrast"`
	Saturation    int  `json:"saturation"`
	Sharpness     int  `json:"sharpness"`
	AwbGain       bool `json:"awbGain"`
	GainCtrl      bool `json:"gainCtrl"`
	ExposureCtrl  bool `json:"exposureCtrl"`
	Gainceiling   int  `json:"gainceiling"`
	AeLevel       int  `json:"aeLevel"`
	LensCorr      bool `json:"lensCorr"`
	RawGma        bool `json:"rawGma"`
	Bpc           bool `json:"bpc"`
	Wpc           bool `json:"wpc"`
	Dcw           bool `json:"dcw"`
	Colorbar      bool `json:"colorbar"`
	SpecialEffect int  `json:"specialEffect"`
	LowLightBoost bool `json:"lowLightBoost"`

	AIHost       string `json:"aiHost"`
	AIModel      string `json:"aiModel"`
	AIPrompt     string `json:"aiPrompt"`
	AINumCtx     int    `json:"aiNumCtx"`
	AINumPredict int    `json:"aiNumPredict"`
	// nil in list responses where no probe was made
	AIReachable *bool `json:"aiReachable"`

	LastImgURL       *string  `json:"lastImgUrl"`
	LastImgTime      *int64   `json:"lastImgTime"`
	LastImgURLs      []string `json:"lastImgUrls"`
	LastAnalysis     *string  `json:"lastAnalysis"`
	LastAnalysisTime *int64   `json:"lastAnalysisTime"`
}

// buildDeviceView resolves a device row into the admin projection. The AI
// reachability probe costs a network round trip, so the list view skips it.
func buildDeviceView(d *models.Device, probe bool) DeviceView {
	resolved := d.Resolve(aiDefaults())

	view := DeviceView{
		DeviceID: d.DeviceID,
		FW:       d.FW,
		IP:       d.IP,
		RSSI:     d.RSSI,
		Model:    d.Model,
		LastSeen: d.LastSeen,

		Rev:               resolved.Rev,
		Framesize:         resolved.Framesize,
		JpegQuality:       resolved.JpegQuality,
		UploadIntervalSec: resolved.UploadIntervalSec,
		UploadURL:         resolved.UploadURL,
		AutoUpload:        resolved.AutoUpload,

		Whitebal:      resolved.Whitebal,
		WbMode:        resolved.WbMode,
		Hmirror:       resolved.Hmirror,
		Vflip:         resolved.Vflip,
		Brightness:    resolved.Brightness,
		Contrast:      resolved.Contrast,
		Saturation:    resolved.Saturation,
		Sharpness:     resolved.Sharpness,
		AwbGain:       resolved.AwbGain,
		GainCtrl:      resolved.GainCtrl,
		ExposureCtrl:  resolved.ExposureCtrl,
		Gainceiling:   resolved.Gainceiling,
		AeLevel:       resolved.AeLevel,
		LensCorr:      resolved.LensCorr,
		RawGma:        resolved.RawGma,
		Bpc:           resolved.Bpc,
		Wpc:           resolved.Wpc,
		Dcw:           resolved.Dcw,
		Colorbar:      resolved.Colorbar,
		SpecialEffect: resolved.SpecialEffect,
		LowLightBoost: resolved.LowLightBoost,

		AIHost:       resolved.AIHost,
		AIModel:      resolved.AIModel,
		AIPrompt:     resolved.AIPrompt,
		AINumCtx:     resolved.AINumCtx,
		AINumPredict: resolved.AINumPredict,

		LastImgURL:       d.LastImgURL,
		LastImgTime:      d.LastImgTime,
		LastImgURLs:      models.SplitRecentImages(d.LastImgURLs),
		LastAnalysis:     d.LastAnalysis,
		LastAnalysisTime: d.LastAnalysisTime,
	}

	if probe {
		reachable := analyzer.CheckReachable(resolved.AIHost)
		view.AIReachable = &reachable
	}
	return view
}

// GetDevices handles GET /api/admin/devices
func GetDevices(c *gin.Context) {
	var devices []models.Device
	if err := database.DB.Order("last_seen IS NULL, last_seen DESC").Find(&devices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch devices"})
		return
	}

	views := make([]DeviceView, len(devices))
	for i := range devices {
		views[i] = buildDeviceView(&devices[i], false)
	}
	c.JSON(http.StatusOK, views)
}

// GetDevice handles GET /api/admin/device/:id
func GetDevice(c *gin.Context) {
	var device models.Device
	err := database.DB.Where("device_id = ?", c.Param("id")).First(&device).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch device"})
		return
	}

	c.JSON(http.StatusOK, buildDeviceView(&device, true))
}

// UpdateConfigRequest is a partial patch of a device's configuration. Absent
// fields are left untouched; present fields are validated as a whole, and one
// invalid value rejects the entire patch.
type UpdateConfigRequest struct {
	Framesize         *string `json:"framesize" binding:"omitempty,oneof=QQVGA QVGA CIF VGA SVGA XGA SXGA UXGA"`
	JpegQuality       *int    `json:"jpegQuality" binding:"omitempty,gte=5,lte=63"`
	UploadIntervalSec *int    `json:"uploadIntervalSec" binding:"omitempty,gte=1,lte=3600"`
	AutoUpload        *bool   `json:"autoUpload"`
	UploadURL         *string `json:"uploadUrl"`
	UploadToken       *string `json:"uploadToken"`

	Whitebal      *bool `json:"whitebal"`
	WbMode        *int  `json:"wbMode" binding:"omitempty,gte=0,lte=4"`
	Hmirror       *bool `json:"hmirror"`
	Vflip         *bool `json:"vflip"`
	Brightness    *int  `json:"brightness" binding:"omitempty,gte=-2,lte=2"`
	Contrast      *int  `json:"contrast" binding:"omitempty,gte=-2,lte=2"`
	Saturation    *int  `json:"saturation" binding:"omitempty,gte=-2,lte=2"`
	Sharpness     *int  `json:"sharpness" binding:"omitempty,gte=-2,lte=2"`
	AwbGain       *bool `json:"awbGain"`
	GainCtrl      *bool `json:"gainCtrl"`
	ExposureCtrl  *bool `json:"exposureCtrl"`
	Gainceiling   *int  `json:"gainceiling" binding:"omitempty,gte=0,lte=5"`
	AeLevel       *int  `json:"aeLevel" binding:"omitempty,gte=-2,lte=2"`
	LensCorr      *bool `json:"lensCorr"`
	RawGma        *bool `json:"rawGma"`
	Bpc           *bool `json:"bpc"`
	Wpc           *bool `json:"wpc"`
	Dcw           *bool `json:"dcw"`
	Colorbar      *bool `json:"colorbar"`
	SpecialEffect *int  `json:"specialEffect" binding:"omitempty,gte=0,lte=6"`
	LowLightBoost *bool `json:"lowLightBoost"`

	AIHost       *string `json:"aiHost"`
	AIModel      *string `json:"aiModel"`
	AIPrompt     *string `json:"aiPrompt"`
	AINumCtx     *int    `json:"aiNumCtx" binding:"omitempty,gte=1"`
	AINumPredict *int    `json:"aiNumPredict" binding:"omitempty,gte=1"`
}

// UpdateDeviceConfig handles POST /api/admin/device/:id/config
func UpdateDeviceConfig(c *gin.Context) {
	var device models.Device
	err := database.DB.Where("device_id = ?", c.Param("id")).First(&device).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch device"})
		return
	}

	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid config: " + err.Error()})
		return
	}

	patch := map[string]interface{}{}
	if req.Framesize != nil && *req.Framesize != "" {
		patch["framesize"] = *req.Framesize
	}
	if req.JpegQuality != nil {
		patch["jpeg_quality"] = *req.JpegQuality
	}
	if req.UploadIntervalSec != nil {
		patch["upload_interval_sec"] = *req.UploadIntervalSec
	}
	if req.AutoUpload != nil {
		patch["auto_upload"] = *req.AutoUpload
	}
	if req.UploadURL != nil {
		patch["upload_url"] = *req.UploadURL
	}
	// A blank token would lock the device out of uploads, so blanks are
	// ignored rather than stored.
	if req.UploadToken != nil && *req.UploadToken != "" {
		patch["upload_token"] = *req.UploadToken
	}

	if req.Whitebal != nil {
		patch["whitebal"] = *req.Whitebal
	}
	if req.WbMode != nil {
		patch["wb_mode"] = *req.WbMode
	}
	if req.Hmirror != nil {
		patch["hmirror"] = *req.Hmirror
	}
	if req.Vflip != nil {
		patch["vflip"] = *req.Vflip
	}
	if req.Brightness != nil {
		patch["brightness"] = *req.Brightness
	}
	if req.Contrast != nil {
		patch["contrast"] = *req.Contrast
	}
	if req.Saturation != nil {
		patch["saturation"] = *req.Saturation
	}
	if req.Sharpness != nil {
		patch["sharpness"] = *req.Sharpness
	}
	if req.AwbGain != nil {
		patch["awb_gain"] = *req.AwbGain
	}
	if req.GainCtrl != nil {
		patch["gain_ctrl"] = *req.GainCtrl
	}
	if req.ExposureCtrl != nil {
		patch["exposure_ctrl"] = *req.ExposureCtrl
	}
	if req.Gainceiling != nil {
		patch["gainceiling"] = *req.Gainceiling
	}
	if req.AeLevel != nil {
		patch["ae_level"] = *req.AeLevel
	}
	if req.LensCorr != nil {
		patch["lens_corr"] = *req.LensCorr
	}
	if req.RawGma != nil {
		patch["raw_gma"] = *req.RawGma
	}
	if req.Bpc != nil {
		patch["bpc"] = *req.Bpc
	}
	if req.Wpc != nil {
		patch["wpc"] = *req.Wpc
	}
	if req.Dcw != nil {
		patch["dcw"] = *req.Dcw
	}
	if req.Colorbar != nil {
		patch["colorbar"] = *req.Colorbar
	}
	if req.SpecialEffect != nil {
		patch["special_effect"] = *req.SpecialEffect
	}
	if req.LowLightBoost != nil {
		patch["low_light_boost"] = *req.LowLightBoost
	}

	if req.AIHost != nil {
		patch["ai_host"] = *req.AIHost
	}
	if req.AIModel != nil {
		patch["ai_model"] = *req.AIModel
	}
	if req.AIPrompt != nil {
		patch["ai_prompt"] = *req.AIPrompt
	}
	if req.AINumCtx != nil {
		patch["ai_num_ctx"] = *req.AINumCtx
	}
	if req.AINumPredict != nil {
		patch["ai_num_predict"] = *req.AINumPredict
	}

	if len(patch) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	// Bump the revision with the patch so devices pick up the change on
	// their next config poll.
	patch["config_rev"] = gorm.Expr("COALESCE(config_rev, 1) + 1")

	if err := database.DB.Model(&device).Updates(patch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update config"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
