package models

import (
	"fmt"
	"strings"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int
	}{
		{0, -2, 2, 0},
		{-5, -2, 2, -2},
		{5, -2, 2, 2},
		{99, 5, 63, 63},
		{1, 5, 63, 5},
		{63, 5, 63, 63},
		{-2, -2, 2, -2},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestValidFrameSize(t *testing.T) {
	if !ValidFrameSize("VGA") {
		t.Error("VGA should be valid")
	}
	if ValidFrameSize("vga") {
		t.Error("frame sizes are case sensitive")
	}
	if ValidFrameSize("4K") {
		t.Error("4K should not be valid")
	}
}

func TestResolveDefaults(t *testing.T) {
	d := &Device{DeviceID: "cam1"}
	ai := AIDefaults{Host: "http://ai:11434", Model: "gemma3:12b", Prompt: "describe", NumCtx: 1024, NumPredict: 64}

	cfg := d.Resolve(ai)

	if cfg.Rev != 1 {
		t.Errorf("Rev = %d, want 1", cfg.Rev)
	}
	if cfg.Framesize != "VGA" {
		t.Errorf("Framesize = %q, want VGA", cfg.Framesize)
	}
	if cfg.JpegQuality != 15 {
		t.Errorf("JpegQuality = %d, want 15", cfg.JpegQuality)
	}
	if cfg.UploadIntervalSec != 10 {
		t.Errorf("UploadIntervalSec = %d, want 10", cfg.UploadIntervalSec)
	}
	if !cfg.AutoUpload || !cfg.Whitebal || !cfg.AwbGain || !cfg.GainCtrl || !cfg.ExposureCtrl {
		t.Error("expected capture bools to default true")
	}
	if cfg.Hmirror || cfg.Vflip || cfg.Colorbar {
		t.Error("expected hmirror, vflip and colorbar to default false")
	}
	if cfg.Brightness != 0 || cfg.Contrast != 1 || cfg.Saturation != 1 || cfg.Sharpness != 1 {
		t.Errorf("unexpected tone defaults: %d %d %d %d", cfg.Brightness, cfg.Contrast, cfg.Saturation, cfg.Sharpness)
	}
	if cfg.Gainceiling != 4 {
		t.Errorf("Gainceiling = %d, want 4", cfg.Gainceiling)
	}
	if cfg.AIHost != ai.Host || cfg.AIModel != ai.Model || cfg.AIPrompt != ai.Prompt {
		t.Error("expected AI fields to fall back to the fleet defaults")
	}
	if cfg.AINumCtx != 1024 || cfg.AINumPredict != 64 {
		t.Errorf("AI options = %d/%d, want 1024/64", cfg.AINumCtx, cfg.AINumPredict)
	}
}

func TestResolveClampsStoredValues(t *testing.T) {
	quality := 99
	brightness := -7
	gainceiling := 12
	interval := 0
	rev := 0
	numCtx := -5
	empty := "   "

	d := &Device{
		DeviceID:          "cam1",
		ConfigRev:         rev,
		JpegQuality:       &quality,
		Brightness:        &brightness,
		Gainceiling:       &gainceiling,
		UploadIntervalSec: &interval,
		AINumCtx:          &numCtx,
		Framesize:         &empty,
	}
	cfg := d.Resolve(AIDefaults{NumCtx: 2048})

	if cfg.Rev != 1 {
		t.Errorf("Rev = %d, want 1", cfg.Rev)
	}
	if cfg.JpegQuality != 63 {
		t.Errorf("JpegQuality = %d, want 63", cfg.JpegQuality)
	}
	if cfg.Brightness != -2 {
		t.Errorf("Brightness = %d, want -2", cfg.Brightness)
	}
	if cfg.Gainceiling != 5 {
		t.Errorf("Gainceiling = %d, want 5", cfg.Gainceiling)
	}
	if cfg.UploadIntervalSec != 1 {
		t.Errorf("UploadIntervalSec = %d, want 1", cfg.UploadIntervalSec)
	}
	if cfg.AINumCtx != 2048 {
		t.Errorf("AINumCtx = %d, want the 2048 fallback", cfg.AINumCtx)
	}
	if cfg.Framesize != "VGA" {
		t.Errorf("blank framesize should resolve to VGA, got %q", cfg.Framesize)
	}
}

func TestPushRecentImage(t *testing.T) {
	var stored *string
	for i := 0; i < 25; i++ {
		joined := PushRecentImage(stored, fmt.Sprintf("/uploads/cam1/img_%d.jpg", i))
		stored = &joined
	}

	urls := SplitRecentImages(stored)
	if len(urls) != RecentImageLimit {
		t.Fatalf("history length = %d, want %d", len(urls), RecentImageLimit)
	}
	if urls[0] != "/uploads/cam1/img_24.jpg" {
		t.Errorf("newest entry = %q, want img_24", urls[0])
	}
	if urls[len(urls)-1] != "/uploads/cam1/img_5.jpg" {
		t.Errorf("oldest entry = %q, want img_5", urls[len(urls)-1])
	}
	if strings.Contains(*stored, "\n\n") {
		t.Error("stored history contains empty entries")
	}
}

func TestSplitRecentImagesNil(t *testing.T) {
	urls := SplitRecentImages(nil)
	if urls == nil || len(urls) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", urls)
	}
}
