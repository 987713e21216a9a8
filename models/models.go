package models

import (
	"time"
)

// Device model - one row per physical camera, keyed by the device-supplied ID.
// Capture tunables are pointers so an unset column is distinguishable from a
// zero value; resolution to effective settings happens in camconfig.go.
type Device struct {
	DeviceID string `gorm:"primaryKey;column:device_id" json:"deviceId"`

	// Identity reported at registration
	FW    string `gorm:"column:fw" json:"fw"`
	IP    string `gorm:"column:ip" json:"ip"`
	RSSI  int    `gorm:"column:rssi" json:"rssi"`
	Model string `gorm:"column:model" json:"model"` // e.g., "ESP32-CAM"

	// Liveness (epoch seconds, nil until first contact)
	LastSeen *int64 `gorm:"column:last_seen;index" json:"lastSeen,omitempty"`

	// Bumped on every committed configuration change so devices can detect drift
	ConfigRev int `gorm:"column:config_rev;default:1" json:"configRev"`

	// Capture configuration
	Framesize         *string `gorm:"column:framesize" json:"framesize,omitempty"`
	JpegQuality       *int    `gorm:"column:jpeg_quality" json:"jpegQuality,omitempty"`
	UploadIntervalSec *int    `gorm:"column:upload_interval_sec" json:"uploadIntervalSec,omitempty"`
	AutoUpload        *bool   `gorm:"column:auto_upload" json:"autoUpload,omitempty"`

	// Upload routing
	UploadURL   string `gorm:"column:upload_url" json:"uploadUrl"`
	UploadToken string `gorm:"column:upload_token" json:"-"` // Hidden from JSON

	// Image sensor tuning
	Whitebal      *bool `gorm:"column:whitebal" json:"whitebal,omitempty"`
	WbMode        *int  `gorm:"column:wb_mode" json:"wbMode,omitempty"`
	Hmirror       *bool `gorm:"column:hmirror" json:"hmirror,omitempty"`
	Vflip         *bool `gorm:"column:vflip" json:"vflip,omitempty"`
	Brightness    *int  `gorm:"column:brightness" json:"brightness,omitempty"`
	Contrast      *int  `gorm:"column:contrast" json:"contrast,omitempty"`
	Saturation    *int  `gorm:"column:saturation" json:"saturation,omitempty"`
	Sharpness     *int  `gorm:"column:sharpness" json:"sharpness,omitempty"`
	AwbGain       *bool `gorm:"column:awb_gain" json:"awbGain,omitempty"`
	GainCtrl      *bool `gorm:"column:gain_ctrl" json:"gainCtrl,omitempty"`
	ExposureCtrl  *bool `gorm:"column:exposure_ctrl" json:"exposureCtrl,omitempty"`
	Gainceiling   *int  `gorm:"column:gainceiling" json:"gainceiling,omitempty"`
	AeLevel       *int  `gorm:"column:ae_level" json:"aeLevel,omitempty"`
	LensCorr      *bool `gorm:"column:lens_corr" json:"lensCorr,omitempty"`
	RawGma        *bool `gorm:"column:raw_gma" json:"rawGma,omitempty"`
	Bpc           *bool `gorm:"column:bpc" json:"bpc,omitempty"`
	Wpc           *bool `gorm:"column:wpc" json:"wpc,omitempty"`
	Dcw           *bool `gorm:"column:dcw" json:"dcw,omitempty"`
	Colorbar      *bool `gorm:"column:colorbar" json:"colorbar,omitempty"`
	SpecialEffect *int  `gorm:"column:special_effect" json:"specialEffect,omitempty"`
	LowLightBoost *bool `gorm:"column:low_light_boost" json:"lowLightBoost,omitempty"`

	// Upload history
	LastImgURL  *string `gorm:"column:last_img_url" json:"lastImgUrl,omitempty"`
	LastImgTime *int64  `gorm:"column:last_img_time" json:"lastImgTime,omitempty"`
	// Newline-joined public URLs, newest first, capped at RecentImageLimit
	LastImgURLs *string `gorm:"column:last_img_urls" json:"-"`

	// Most recent AI analysis; independent of the image history
	LastAnalysis     *string `gorm:"column:last_analysis" json:"lastAnalysis,omitempty"`
	LastAnalysisTime *int64  `gorm:"column:last_analysis_time" json:"lastAnalysisTime,omitempty"`

	// Per-device AI overrides; nil falls back to the fleet defaults
	AIHost       *string `gorm:"column:ai_host" json:"aiHost,omitempty"`
	AIModel      *string `gorm:"column:ai_model" json:"aiModel,omitempty"`
	AIPrompt     *string `gorm:"column:ai_prompt" json:"aiPrompt,omitempty"`
	AINumCtx     *int    `gorm:"column:ai_num_ctx" json:"aiNumCtx,omitempty"`
	AINumPredict *int    `gorm:"column:ai_num_predict" json:"aiNumPredict,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Device) TableName() string {
	return "devices"
}
