package embed

import (
	"context"
	"fmt"
	"strings"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
)

// Mode selects which embedder variant a Factory constructs.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeML   Mode = "ml"
	ModeHash Mode = "hash"
)

// ParseMode converts a configuration string to a Mode, defaulting to auto
// for anything unrecognized.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ml":
		return ModeML
	case "hash":
		return ModeHash
	default:
		return ModeAuto
	}
}

// Factory builds the configured Embedder variant.
type Factory struct {
	Mode   Mode
	Ollama OllamaConfig
}

// New constructs an embedder for the factory's configured mode. ModeAuto
// tries the ML embedder first and falls back to the hash embedder if the
// endpoint is unreachable; ModeML and ModeHash force their variant and
// surface a failure to construct rather than silently falling back.
func (f Factory) New(ctx context.Context) (Embedder, error) {
	switch f.Mode {
	case ModeHash:
		return NewHashEmbedder(), nil
	case ModeML:
		e, err := NewOllamaEmbedder(ctx, f.Ollama)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ModeAuto, "":
		e, err := NewOllamaEmbedder(ctx, f.Ollama)
		if err == nil {
			return e, nil
		}
		return NewHashEmbedder(), nil
	default:
		return nil, corerr.ConfigError(fmt.Sprintf("unknown embedder mode %q", f.Mode), nil)
	}
}
