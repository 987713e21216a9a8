package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// Upper bound on a generate call; an upload blocks on it synchronously.
	generateTimeout = 20 * time.Second
	// Reachability probes back the admin UI and must stay snappy.
	probeTimeout = 2 * time.Second
)

// AIConfig is the resolved per-device vision-model configuration.
type AIConfig struct {
	Host       string
	Model      string
	Prompt     string
	NumCtx     int
	NumPredict int
}

// OllamaAnalyzer describes uploaded images via an Ollama-compatible
// /api/generate endpoint. Analysis is best effort: every failure degrades to
// a nil result so an upload never fails because the model is down.
type OllamaAnalyzer struct {
	client      *http.Client
	probeClient *http.Client
}

// NewOllamaAnalyzer creates an analyzer with bounded timeouts.
func NewOllamaAnalyzer() *OllamaAnalyzer {
	return &OllamaAnalyzer{
		client:      &http.Client{Timeout: generateTimeout},
		probeClient: &http.Client{Timeout: probeTimeout},
	}
}

// normalizeHost prepends a scheme when the host string lacks one and parses
// it. Hosts arrive as "host:11434", "http://host:11434" or full API URLs.
func normalizeHost(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("empty AI host")
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("no host in AI endpoint %q", host)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// GenerateEndpoint derives the /api/generate URL from a host string,
// tolerating bare hosts and hosts already carrying an /api or /api/generate
// suffix without double-appending.
func GenerateEndpoint(host string) (string, error) {
	u, err := normalizeHost(host)
	if err != nil {
		return "", err
	}
	path := strings.TrimRight(u.Path, "/")
	switch {
	case strings.HasSuffix(path, "/api/generate"):
	case strings.HasSuffix(path, "/api"):
		path += "/generate"
	case strings.Contains(path, "/api/generate"):
	default:
		path += "/api/generate"
	}
	u.Path = path
	return u.String(), nil
}

// TagsEndpoint derives the /api/tags reachability URL from the same host
// string shapes GenerateEndpoint accepts.
func TagsEndpoint(host string) (string, error) {
	u, err := normalizeHost(host)
	if err != nil {
		return "", err
	}
	path := strings.TrimRight(u.Path, "/")
	switch {
	case strings.HasSuffix(path, "/api/generate"):
		path = strings.TrimSuffix(path, "/generate") + "/tags"
	case strings.HasSuffix(path, "/api"):
		path += "/tags"
	case strings.Contains(path, "/api/generate"):
		path = path[:strings.Index(path, "/api/generate")] + "/api/tags"
	default:
		path += "/api/tags"
	}
	u.Path = path
	return u.String(), nil
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Images  []string       `json:"images,omitempty"`
	Options map[string]int `json:"options"`
}

type generateResponse struct {
	Response json.RawMessage `json:"response"`
	Output   json.RawMessage `json:"output"`
	Text     json.RawMessage `json:"text"`
}

// Analyze runs the vision model over a stored upload and returns the trimmed
// result text, or nil when analysis is skipped or fails. The prompt template
// may reference {url}, {path} and {filename}.
func (a *OllamaAnalyzer) Analyze(cfg AIConfig, filePath, urlPath string) *string {
	host := strings.TrimSpace(cfg.Host)
	model := strings.TrimSpace(cfg.Model)
	if host == "" || model == "" || cfg.Prompt == "" {
		// Analysis is optional; an unconfigured device skips it silently.
		return nil
	}

	endpoint, err := GenerateEndpoint(host)
	if err != nil {
		log.Printf("⚠️ [OLLAMA] bad host %q: %v", host, err)
		return nil
	}

	prompt := strings.NewReplacer(
		"{url}", urlPath,
		"{path}", filePath,
		"{filename}", filepath.Base(filePath),
	).Replace(cfg.Prompt)

	body := generateRequest{
		Model:   model,
		Prompt:  prompt,
		Options: map[string]int{},
	}
	if raw, err := os.ReadFile(filePath); err != nil {
		// Send the prompt without the image rather than failing outright.
		log.Printf("⚠️ [OLLAMA] failed to read image %s: %v", filePath, err)
	} else if encoded := base64.StdEncoding.EncodeToString(raw); encoded != "" {
		body.Images = []string{encoded}
	}
	if cfg.NumCtx > 0 {
		body.Options["num_ctx"] = cfg.NumCtx
	}
	if cfg.NumPredict > 0 {
		body.Options["num_predict"] = cfg.NumPredict
	}

	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("⚠️ [OLLAMA] failed to encode request: %v", err)
		return nil
	}

	resp, err := a.client.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("⚠️ [OLLAMA] request error for %s: %v", endpoint, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		log.Printf("⚠️ [OLLAMA] HTTP %d from %s body=%s", resp.StatusCode, endpoint, snippet)
		return nil
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("⚠️ [OLLAMA] invalid JSON from %s: %v", endpoint, err)
		return nil
	}

	for _, raw := range []json.RawMessage{out.Response, out.Output, out.Text} {
		if text := strings.TrimSpace(textFrom(raw)); text != "" {
			return &text
		}
	}
	return nil
}

// textFrom extracts free text from a response field that may be a plain
// string or a list of fragments.
func textFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if p == nil {
				continue
			}
			if s := fmt.Sprintf("%v", p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// CheckReachable issues a short GET against the host's /api/tags endpoint,
// collapsing any failure to false. Used by the admin device detail view.
func (a *OllamaAnalyzer) CheckReachable(host string) bool {
	endpoint, err := TagsEndpoint(host)
	if err != nil {
		return false
	}
	resp, err := a.probeClient.Get(endpoint)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
