// Package config loads process-wide settings and fleet defaults from the
// environment.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the static tokens, storage locations and fleet-wide AI
// defaults. It is loaded once at startup and handed to the packages that need
// it, so tests can inject alternates instead of reading ambient state.
type Config struct {
	// BackendToken authorizes the device-facing fleet API (register, config).
	BackendToken string
	// UploadToken is the global image upload secret. Devices may carry their
	// own per-device token that is accepted as an alternative.
	UploadToken string

	UploadDir     string
	FrontendDir   string
	ServeFrontend bool

	NATSPort int

	// Fleet-wide AI defaults, overridable per device.
	DefaultAIHost       string
	DefaultAIModel      string
	DefaultAIPrompt     string
	DefaultAINumCtx     int
	DefaultAINumPredict int
}

// Load reads the configuration from the environment, falling back to
// development defaults.
func Load() Config {
	return Config{
		BackendToken:        envStr("BACKEND_TOKEN", "1234567890"),
		UploadToken:         envStr("UPLOAD_TOKEN", "0987654321"),
		UploadDir:           envStr("UPLOAD_DIR", "uploads"),
		FrontendDir:         envStr("FRONTEND_DIR", "frontend"),
		ServeFrontend:       envBool("SERVE_FRONTEND", true),
		NATSPort:            envInt("NATS_PORT", 4233),
		DefaultAIHost:       envStr("DEFAULT_AI_HOST", "http://192.168.1.90:11434"),
		DefaultAIModel:      envStr("DEFAULT_AI_MODEL", "gemma3:12b"),
		DefaultAIPrompt:     envStr("DEFAULT_AI_PROMPT", "What do you see in this picture? Describe it briefly. {path}"),
		DefaultAINumCtx:     envInt("DEFAULT_AI_NUM_CTX", 1024),
		DefaultAINumPredict: envInt("DEFAULT_AI_NUM_PREDICT", 64),
	}
}

func envStr(name, def string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return def
	}
	return value
}

func envInt(name string, def int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

func envBool(name string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
