// Package handlers contains the HTTP handlers for the fleet API
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/homedog/backend/config"
	"github.com/homedog/backend/models"
	"github.com/homedog/backend/services"
)

// Analyzer describes an uploaded image. Implemented by services.OllamaAnalyzer.
type Analyzer interface {
	Analyze(cfg services.AIConfig, filePath, urlPath string) *string
	CheckReachable(host string) bool
}

// Publisher pushes upload events onto the internal bus. Implemented by
// natsserver.EmbeddedNATS.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var (
	cfg      config.Config
	store    *services.ImageStore
	analyzer Analyzer
	bus      Publisher
)

// Init wires the handler package dependencies. The publisher may be nil when
// the embedded bus failed to start; uploads then skip event publishing.
func Init(c config.Config, s *services.ImageStore, a Analyzer, p Publisher) {
	cfg = c
	store = s
	analyzer = a
	bus = p
}

// baseURL reconstructs the externally visible origin of the request so that
// auto-provisioned devices get an upload URL they can actually reach.
func baseURL(c *gin.Context) string {
	scheme := c.GetHeader("X-Forwarded-Proto")
	if scheme == "" {
		if c.Request.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + c.Request.Host
}

func aiDefaults() models.AIDefaults {
	return models.AIDefaults{
		Host:       cfg.DefaultAIHost,
		Model:      cfg.DefaultAIModel,
		Prompt:     cfg.DefaultAIPrompt,
		NumCtx:     cfg.DefaultAINumCtx,
		NumPredict: cfg.DefaultAINumPredict,
	}
}

// aiConfigFor resolves the per-device AI settings against the fleet defaults.
// A nil device means the upload came from an id that never registered.
func aiConfigFor(device *models.Device) services.AIConfig {
	ai := aiDefaults()
	out := services.AIConfig{
		Host:       ai.Host,
		Model:      ai.Model,
		Prompt:     ai.Prompt,
		NumCtx:     ai.NumCtx,
		NumPredict: ai.NumPredict,
	}
	if device == nil {
		return out
	}
	out.Host = models.StrOr(device.AIHost, ai.Host)
	out.Model = models.StrOr(device.AIModel, ai.Model)
	out.Prompt = models.StrOr(device.AIPrompt, ai.Prompt)
	out.NumCtx = models.PositiveIntOr(device.AINumCtx, ai.NumCtx)
	out.NumPredict = models.PositiveIntOr(device.AINumPredict, ai.NumPredict)
	return out
}
