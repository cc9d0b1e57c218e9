package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
)

// Ollama request/response timeouts. Warm is used once a model has
// answered at least once; cold covers the first call, when Ollama may
// still be loading the model into memory.
const (
	OllamaConnectTimeout = 5 * time.Second
	OllamaWarmTimeout    = 30 * time.Second
	OllamaColdTimeout    = 90 * time.Second
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	Host  string
	Model string
}

// OllamaEmbedder is the ML embedder variant: an HTTP client against a
// local Ollama-compatible embedding endpoint.
type OllamaEmbedder struct {
	cfg        OllamaConfig
	client     *http.Client
	transport  *http.Transport
	dimensions int

	mu       sync.Mutex
	warmedUp bool
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates an Ollama-backed embedder and probes the
// endpoint to determine the model's output dimension.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}

	transport := &http.Transport{
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     10 * time.Second,
	}
	client := &http.Client{Transport: transport}

	e := &OllamaEmbedder{cfg: cfg, client: client, transport: transport}

	probeCtx, cancel := context.WithTimeout(ctx, OllamaColdTimeout)
	defer cancel()
	vec, err := e.embedOnce(probeCtx, "dimension probe")
	if err != nil {
		transport.CloseIdleConnections()
		return nil, corerr.New(corerr.ErrCodeEmbeddingFailed, "ollama embedder unavailable", err)
	}
	e.dimensions = len(vec)
	e.warmedUp = true
	return e, nil
}

func (e *OllamaEmbedder) ID() string       { return "ollama:" + e.cfg.Model }
func (e *OllamaEmbedder) Revision() string { return e.cfg.Host }
func (e *OllamaEmbedder) Dimensions() int  { return e.dimensions }

func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, OllamaConnectTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (e *OllamaEmbedder) Close() error {
	e.transport.CloseIdleConnections()
	return nil
}

// Embed generates an embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	timeout := e.currentTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := e.embedOnce(ctx, text)
	if err != nil {
		return nil, corerr.New(corerr.ErrCodeEmbeddingFailed, "ollama embed failed", err)
	}
	e.mu.Lock()
	e.warmedUp = true
	e.mu.Unlock()
	return normalizeVector(vec), nil
}

// EmbedBatch embeds each text with its own request; Ollama's /api/embed
// endpoint accepts one input at a time in the version this client targets.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *OllamaEmbedder) currentTimeout() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.warmedUp {
		return OllamaWarmTimeout
	}
	return OllamaColdTimeout
}

func (e *OllamaEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.cfg.Model, Input: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}
	return parsed.Embeddings[0], nil
}

var _ Embedder = (*OllamaEmbedder)(nil)
