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

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeML, ParseMode("ml"))
	assert.Equal(t, ModeHash, ParseMode("hash"))
	assert.Equal(t, ModeAuto, ParseMode("auto"))
	assert.Equal(t, ModeAuto, ParseMode("nonsense"))
	assert.Equal(t, ModeAuto, ParseMode(""))
}

func TestFactory_ModeHashAlwaysSucceeds(t *testing.T) {
	f := Factory{Mode: ModeHash}
	e, err := f.New(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hash", e.ID())
}

func TestFactory_ModeMLFailsWithoutFallbackWhenUnreachable(t *testing.T) {
	f := Factory{Mode: ModeML, Ollama: OllamaConfig{Host: "http://127.0.0.1:1"}}
	_, err := f.New(context.Background())
	assert.Error(t, err)
}

func TestFactory_ModeAutoFallsBackToHashWhenMLUnreachable(t *testing.T) {
	f := Factory{Mode: ModeAuto, Ollama: OllamaConfig{Host: "http://127.0.0.1:1"}}
	e, err := f.New(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hash", e.ID())
}

func TestFactory_ModeAutoPrefersMLWhenAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/embed":
			vec := make([]float32, 4)
			vec[0] = 1
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{vec}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := Factory{Mode: ModeAuto, Ollama: OllamaConfig{Host: srv.URL, Model: "test-model"}}
	e, err := f.New(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ollama:test-model", e.ID())
	_ = e.Close()
}
