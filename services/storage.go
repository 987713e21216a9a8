package services

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SafeName replaces every character outside [A-Za-z0-9_.-] with an underscore.
func SafeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// ImageStore persists uploaded JPEGs under a per-device directory and maps
// each file to a public /uploads URL path.
type ImageStore struct {
	baseDir string
}

// NewImageStore creates a store rooted at baseDir.
func NewImageStore(baseDir string) *ImageStore {
	return &ImageStore{baseDir: baseDir}
}

// Save writes the raw image under <baseDir>/<deviceID>/. The filename hint is
// sanitized and forced to a .jpg suffix; without a hint the name is
// synthesized from the device id and the current epoch second. Returns the
// on-disk path, the public URL path and the timestamp used.
func (s *ImageStore) Save(deviceID string, raw []byte, hint string) (filePath, urlPath string, ts int64, err error) {
	ts = time.Now().Unix()

	dir := SafeName(deviceID)
	name := strings.TrimSpace(hint)
	if name == "" {
		name = fmt.Sprintf("%s_%d.jpg", dir, ts)
	}
	name = SafeName(name)
	if !strings.HasSuffix(strings.ToLower(name), ".jpg") {
		name += ".jpg"
	}

	deviceDir := filepath.Join(s.baseDir, dir)
	if err = os.MkdirAll(deviceDir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("failed to create upload dir: %w", err)
	}

	filePath = filepath.Join(deviceDir, name)
	if err = os.WriteFile(filePath, raw, 0o644); err != nil {
		return "", "", 0, fmt.Errorf("failed to write image: %w", err)
	}

	// The router serves baseDir statically under /uploads
	urlPath = "/uploads/" + dir + "/" + name
	return filePath, urlPath, ts, nil
}
