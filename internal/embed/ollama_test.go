package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllamaServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/embed":
			vec := make([]float32, dim)
			vec[0] = 1
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{vec}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestOllamaEmbedder_ProbesDimensionOnConstruction(t *testing.T) {
	srv := fakeOllamaServer(t, 8)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "test-model"})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 8, e.Dimensions())
	assert.Equal(t, "ollama:test-model", e.ID())
}

func TestOllamaEmbedder_EmbedNormalizes(t *testing.T) {
	srv := fakeOllamaServer(t, 4)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "test-model"})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(vec[0]), 1e-6)
}

func TestOllamaEmbedder_UnavailableEndpointFailsConstruction(t *testing.T) {
	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: "http://127.0.0.1:1", Model: "test-model"})
	assert.Error(t, err)
}

func TestOllamaEmbedder_AvailableChecksTagsEndpoint(t *testing.T) {
	srv := fakeOllamaServer(t, 4)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "test-model"})
	require.NoError(t, err)
	defer e.Close()

	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	srv := fakeOllamaServer(t, 4)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "test-model"})
	require.NoError(t, err)
	defer e.Close()

	batch, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}
