// Package facade wires the lexical index, vector index, embedder, cache,
// fuser, deduper, snippet generator and warm worker into the single
// entry point external callers use: index_batch, delete_source, search,
// health, optimize_if_idle, metrics. It is a parallel fan-out engine
// (concurrent lexical/semantic search, fused and enriched via
// golang.org/x/sync/errgroup) implementing this core's
// cache -> plan -> {lexical,semantic,hybrid} -> dedup -> snippet routing.
package facade

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/justSteve/coding-agent-session-search/internal/cache"
	"github.com/justSteve/coding-agent-session-search/internal/config"
	"github.com/justSteve/coding-agent-session-search/internal/embed"
	"github.com/justSteve/coding-agent-session-search/internal/fusion"
	"github.com/justSteve/coding-agent-session-search/internal/idstore"
	"github.com/justSteve/coding-agent-session-search/internal/lexical"
	"github.com/justSteve/coding-agent-session-search/internal/logging"
	"github.com/justSteve/coding-agent-session-search/internal/schema"
	"github.com/justSteve/coding-agent-session-search/internal/telemetry"
	"github.com/justSteve/coding-agent-session-search/internal/vectorindex"
	"github.com/justSteve/coding-agent-session-search/internal/warmworker"
)

const (
	lexicalDirName  = "lexical"
	vectorsDirName  = "vectors"
	vectorFileName  = "cvvi.bin"
	metadataDBName  = "meta.sqlite"
)

// Facade is the search core's single entry point. There is at most one
// writer across the lexical and vector indices at any time; write
// operations serialize on writeMu. Readers (Search) take the vector
// index's current snapshot under vecMu without blocking on writers for
// longer than a pointer swap.
type Facade struct {
	cfg    *config.Config
	logger *slog.Logger

	lex      *lexical.Index
	ids      *idstore.Store
	embedder embed.Embedder
	cacheSt  *cache.Store
	fuser    *fusion.Fuser
	metrics  *telemetry.Metrics
	warm     *warmworker.Worker

	vectorPath string
	vecMu      sync.RWMutex
	vec        *vecHandle // nil until the first successful build

	writeMu     sync.Mutex
	lastIndexed int64 // unix ms of the most recent successful commit

	writerLock *flock.Flock // cross-process single-writer guard; released on Close
	logCleanup func()       // non-nil when Open provisioned its own rotating log file
}

// Open boots the full search core against cfg.DataDir, opening (or
// creating) the lexical index, the id store, the embedder, and — if
// present on disk — the vector index, then starts the warm worker. When
// logger is nil, Open provisions its own JSON-structured, size- and
// count-bounded rotating log file under cfg.DataDir/logs rather than
// falling back to slog.Default(), so a caller that doesn't care to wire
// its own logger still gets durable, rotated records instead of an
// unbounded stream to stderr.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Facade, error) {
	var logCleanup func()
	if logger == nil {
		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.LogLevel
		logCfg.FilePath = filepath.Join(cfg.DataDir, "logs", "core.log")
		var err error
		logger, logCleanup, err = logging.Setup(logCfg)
		if err != nil {
			return nil, err
		}
	}

	writerLock, err := acquireWriterLock(cfg.DataDir)
	if err != nil {
		if logCleanup != nil {
			logCleanup()
		}
		return nil, err
	}

	mergePolicy := lexical.DefaultMergePolicy()
	if cfg.MergeThreshold > 0 {
		mergePolicy = lexical.MergePolicy{
			SegmentThreshold: cfg.MergeThreshold,
			ForceThreshold:   cfg.MergeForceThreshold,
			Cooldown:         time.Duration(cfg.MergeCooldownMS) * time.Millisecond,
		}
	}
	lex, err := lexical.Open(filepath.Join(cfg.DataDir, lexicalDirName), mergePolicy, logger)
	if err != nil {
		_ = writerLock.Unlock()
		if logCleanup != nil {
			logCleanup()
		}
		return nil, err
	}

	ids, err := idstore.Open(filepath.Join(cfg.DataDir, metadataDBName))
	if err != nil {
		_ = lex.Close()
		_ = writerLock.Unlock()
		if logCleanup != nil {
			logCleanup()
		}
		return nil, err
	}

	embedder, err := (embed.Factory{
		Mode:   embed.ParseMode(string(cfg.Embedder)),
		Ollama: embed.OllamaConfig{Host: cfg.OllamaHost, Model: "embeddinggemma"},
	}).New(ctx)
	if err != nil {
		_ = lex.Close()
		_ = ids.Close()
		_ = writerLock.Unlock()
		if logCleanup != nil {
			logCleanup()
		}
		return nil, err
	}

	f := &Facade{
		cfg:        cfg,
		logger:     logger,
		lex:        lex,
		ids:        ids,
		embedder:   embedder,
		writerLock: writerLock,
		logCleanup: logCleanup,
		cacheSt: cache.New(cache.Options{
			ShardCount: 16,
			ShardCap:   cfg.CacheShardCap,
			ByteCap:    int(cfg.CacheByteCap),
		}),
		fuser:      fusion.New(cfg.RRFConstant),
		metrics:    telemetry.New(),
		vectorPath: filepath.Join(cfg.DataDir, vectorsDirName, vectorFileName),
	}

	if _, err := os.Stat(f.vectorPath); err == nil {
		vec, err := vectorindex.Open(f.vectorPath, vectorindex.OpenOptions{
			ExpectedEmbedderID:  embedder.ID(),
			ExpectedEmbedderRev: embedder.Revision(),
			ExpectedDimension:   embedder.Dimensions(),
			Preconvert:          cfg.VectorPreconvert,
		})
		if err != nil {
			f.logger.Warn("vector_index_open_failed", slog.String("error", err.Error()))
		} else {
			f.vec = newVecHandle(vec)
		}
	}

	f.warm = warmworker.New(time.Duration(cfg.WarmDebounceMS)*time.Millisecond, f.warmReload, logger)

	return f, nil
}

// warmReload is the warm worker's reload callback: it touches the
// lexical reader and runs a trivial MatchAll(limit=1) search so the
// index's segment pages are paged back into the OS cache after a
// commit, then records the reload's cost.
func (f *Facade) warmReload(ctx context.Context) error {
	start := time.Now()
	if err := f.lex.ReloadReader(); err != nil {
		return err
	}
	err := f.lex.WarmTouch(ctx)
	f.metrics.RecordReload(time.Since(start))
	return err
}

// Close releases every underlying resource. Safe to call once.
func (f *Facade) Close() error {
	f.warm.Stop()
	f.vecMu.Lock()
	vh := f.vec
	f.vec = nil
	f.vecMu.Unlock()
	if vh != nil {
		vh.retire()
	}
	_ = f.embedder.Close()
	_ = f.ids.Close()
	err := f.lex.Close()
	_ = f.writerLock.Unlock()
	if f.logCleanup != nil {
		f.logCleanup()
	}
	return err
}

// Health reports the core's current operational status.
func (f *Facade) Health() HealthStatus {
	f.vecMu.RLock()
	vh := f.vec
	f.vecMu.RUnlock()
	rows := 0
	if vh != nil {
		idx := vh.acquire()
		rows = idx.RowCount()
		vh.release()
	}

	docCount, _ := f.lex.DocCount()
	stats := f.warm.Stats()

	return HealthStatus{
		IndexExists:   docCount > 0 || rows > 0,
		LastIndexedAt: f.lastIndexed,
		Segments:      1, // scorch exposes no public segment count; commits are atomic batches.
		VectorRows:    rows,
		PendingMerges: false,
		WarmWorkerOK:  stats.Failures == 0,
	}
}

// OptimizeIfIdle asks the lexical writer whether enough commits have
// accumulated (and the cooldown elapsed) to warrant a background merge.
func (f *Facade) OptimizeIfIdle() OptimizeResult {
	return OptimizeResult{Merged: f.lex.MergeIfIdle()}
}

// Metrics returns a snapshot of the façade's operational counters.
func (f *Facade) Metrics() MetricsSnapshot {
	s := f.metrics.Snapshot()
	w := f.warm.Stats()
	return MetricsSnapshot{
		CacheHits:       s.CacheHits,
		CacheMiss:       s.CacheMiss,
		CacheShortfall:  s.CacheShortfall,
		Reloads:         s.Reloads,
		ReloadMSTotal:   s.ReloadMSTotal,
		SearchP50MS:     s.SearchP50.Milliseconds(),
		SearchP95MS:     s.SearchP95.Milliseconds(),
		WarmWorkerRuns:  w.Runs,
		WarmWorkerFails: w.Failures,
	}
}

// schemaHash exposes the compiled-in lexical schema hash for cache keys.
func schemaHash() string { return schema.Hash }
