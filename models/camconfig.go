package models

import "strings"

// FrameSizes lists the resolution names a device sensor accepts.
var FrameSizes = []string{"QQVGA", "QVGA", "CIF", "VGA", "SVGA", "XGA", "SXGA", "UXGA"}

// ValidFrameSize reports whether name is one of the accepted resolutions.
func ValidFrameSize(name string) bool {
	for _, fs := range FrameSizes {
		if fs == name {
			return true
		}
	}
	return false
}

// Capture defaults used whenever a stored field is unset.
const (
	DefaultFramesize         = "VGA"
	DefaultJpegQuality       = 15
	DefaultUploadIntervalSec = 10
)

// RecentImageLimit bounds the per-device upload history.
const RecentImageLimit = 20

// Clamp forces v into [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StrOr resolves an optional string column, treating blank as unset.
func StrOr(v *string, def string) string {
	if v == nil {
		return def
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return def
	}
	return s
}

// IntOr resolves an optional int column.
func IntOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// BoolOr resolves an optional bool column.
func BoolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// PositiveIntOr resolves an optional int column, falling back on zero or
// negative stored values as well as on nil.
func PositiveIntOr(v *int, def int) int {
	if v == nil || *v <= 0 {
		return def
	}
	return *v
}

// AIDefaults carries the fleet-wide fallbacks for the per-device AI settings.
type AIDefaults struct {
	Host       string
	Model      string
	Prompt     string
	NumCtx     int
	NumPredict int
}

// ResolvedConfig is the full effective configuration served to a device:
// every field defaulted and clamped to its valid domain, regardless of what
// was persisted. Field names match what the firmware parses.
type ResolvedConfig struct {
	Rev               int    `json:"rev"`
	Framesize         string `json:"framesize"`
	JpegQuality       int    `json:"jpegQuality"`
	UploadIntervalSec int    `json:"uploadIntervalSec"`
	UploadURL         string `json:"uploadUrl"`
	UploadToken       string `json:"uploadToken"`
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
}

// Resolve builds the effective configuration for a device. Clamping happens
// here, at read time, so values edited directly in the store still come out
// inside their declared domains.
func (d *Device) Resolve(ai AIDefaults) ResolvedConfig {
	rev := d.ConfigRev
	if rev < 1 {
		rev = 1
	}

	interval := IntOr(d.UploadIntervalSec, DefaultUploadIntervalSec)
	if interval < 1 {
		interval = 1
	}

	return ResolvedConfig{
		Rev:               rev,
		Framesize:         StrOr(d.Framesize, DefaultFramesize),
		JpegQuality:       Clamp(IntOr(d.JpegQuality, DefaultJpegQuality), 5, 63),
		UploadIntervalSec: interval,
		UploadURL:         d.UploadURL,
		UploadToken:       d.UploadToken,
		AutoUpload:        BoolOr(d.AutoUpload, true),

		Whitebal:      BoolOr(d.Whitebal, true),
		WbMode:        Clamp(IntOr(d.WbMode, 0), 0, 4),
		Hmirror:       BoolOr(d.Hmirror, false),
		Vflip:         BoolOr(d.Vflip, false),
		Brightness:    Clamp(IntOr(d.Brightness, 0), -2, 2),
		Contrast:      Clamp(IntOr(d.Contrast, 1), -2, 2),
		Saturation:    Clamp(IntOr(d.Saturation, 1), -2, 2),
		Sharpness:     Clamp(IntOr(d.Sharpness, 1), -2, 2),
		AwbGain:       BoolOr(d.AwbGain, true),
		GainCtrl:      BoolOr(d.GainCtrl, true),
		ExposureCtrl:  BoolOr(d.ExposureCtrl, true),
		Gainceiling:   Clamp(IntOr(d.Gainceiling, 4), 0, 5),
		AeLevel:       Clamp(IntOr(d.AeLevel, 0), -2, 2),
		LensCorr:      BoolOr(d.LensCorr, true),
		RawGma:        BoolOr(d.RawGma, true),
		Bpc:           BoolOr(d.Bpc, true),
		Wpc:           BoolOr(d.Wpc, true),
		Dcw:           BoolOr(d.Dcw, true),
		Colorbar:      BoolOr(d.Colorbar, false),
		SpecialEffect: Clamp(IntOr(d.SpecialEffect, 0), 0, 6),
		LowLightBoost: BoolOr(d.LowLightBoost, true),

		AIHost:       StrOr(d.AIHost, ai.Host),
		AIModel:      StrOr(d.AIModel, ai.Model),
		AIPrompt:     StrOr(d.AIPrompt, ai.Prompt),
		AINumCtx:     PositiveIntOr(d.AINumCtx, ai.NumCtx),
		AINumPredict: PositiveIntOr(d.AINumPredict, ai.NumPredict),
	}
}

// SplitRecentImages parses the newline-joined history column into a slice,
// newest first. A filename containing the delimiter would corrupt parsing;
// upload filenames are sanitized to [A-Za-z0-9_.-] before storage, which
// keeps newlines out of the column.
func SplitRecentImages(stored *string) []string {
	urls := []string{}
	if stored == nil {
		return urls
	}
	for _, u := range strings.Split(*stored, "\n") {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// PushRecentImage prepends url to the stored history and truncates it to
// RecentImageLimit entries. Concurrent uploads for the same device race on
// this column with last-write-wins semantics; entries can be lost, never
// duplicated or reordered.
func PushRecentImage(stored *string, url string) string {
	urls := append([]string{url}, SplitRecentImages(stored)...)
	if len(urls) > RecentImageLimit {
		urls = urls[:RecentImageLimit]
	}
	return strings.Join(urls, "\n")
}
