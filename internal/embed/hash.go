package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
	"github.com/justSteve/coding-agent-session-search/internal/tokenizer"
)

// HashEmbedder is the deterministic, network-free embedder: it exists so
// the system boots and answers without any ML dependency, and so tests are
// reproducible. Each dimension is a bucket accumulating weighted token and
// character-trigram hashes.
type HashEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

const (
	hashTokenWeight = 0.7
	hashNgramWeight = 0.3
	hashNgramSize   = 3
)

// NewHashEmbedder creates a new deterministic hash-based embedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

func (e *HashEmbedder) ID() string       { return "hash" }
func (e *HashEmbedder) Revision() string { return "v1" }
func (e *HashEmbedder) Dimensions() int  { return HashDimensions }

func (e *HashEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

func (e *HashEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Embed generates a deterministic embedding for text by blending FNV-64
// token hashes and character-trigram hashes into fixed-dimension buckets,
// then unit-normalizing.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, corerr.Bug("hash embedder is closed", nil)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, HashDimensions), nil
	}
	return normalizeVector(e.vectorFor(trimmed)), nil
}

func (e *HashEmbedder) vectorFor(text string) []float32 {
	vector := make([]float32, HashDimensions)

	for _, tok := range tokenizer.Tokenize(text) {
		vector[hashToIndex(tok, HashDimensions)] += hashTokenWeight
	}

	normalized := stripToLetterDigit(text)
	for _, ngram := range trigrams(normalized, hashNgramSize) {
		vector[hashToIndex(ngram, HashDimensions)] += hashNgramWeight
	}

	return vector
}

// EmbedBatch embeds each text independently; the hash embedder has no
// batching efficiency to gain from a shared call.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func stripToLetterDigit(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func trigrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	grams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		grams = append(grams, text[i:i+n])
	}
	return grams
}

var _ Embedder = (*HashEmbedder)(nil)
