package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/avi5049/cardio-risk/internal/telemetry"
)

// Source fetches the raw model artifact.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Describe() string
}

// FileSource reads the artifact from disk.
type FileSource struct {
	path string
}

// NewFileSource constructs a source for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f *FileSource) Describe() string { return "file:" + f.path }

// Path is watched for changes by Watcher.
func (f *FileSource) Path() string { return f.path }

// Metadata tracks what is loaded and how reloads went.
type Metadata struct {
	Version      string    `json:"version"`
	Source       string    `json:"source"`
	NumTrees     int       `json:"num_trees,omitempty"`
	Loaded       bool      `json:"loaded"`
	LoadedAt     time.Time `json:"loaded_at,omitempty"`
	LastReloadAt time.Time `json:"last_reload_at,omitempty"`
	ReloadCount  int       `json:"reload_count"`
	LastError    string    `json:"last_error,omitempty"`
}

type build struct {
	scorer   Scorer
	version  string
	numTrees int
}

// Loader builds scorers and hands them to the Adapter. A failed load keeps
// whatever model was active before.
type Loader struct {
	adapter  *Adapter
	describe string
	builder  func(ctx context.Context) (build, error)
	reloads  metric.Int64Counter

	reloadMu sync.Mutex

	mu   sync.RWMutex
	meta Metadata
}

// NewArtifactLoader loads XGBoost JSON artifacts from src.
func NewArtifactLoader(src Source, adapter *Adapter, inst telemetry.Instruments) *Loader {
	l := newLoader(adapter, src.Describe(), inst)
	l.builder = func(ctx context.Context) (build, error) {
		data, err := src.Fetch(ctx)
		if err != nil {
			return build{}, fmt.Errorf("fetch %s: %w", src.Describe(), err)
		}
		sum := sha256.Sum256(data)
		version := hex.EncodeToString(sum[:])[:12]
		if version == adapter.Version() {
			return build{version: version}, nil
		}
		booster, err := ParseBooster(data)
		if err != nil {
			return build{}, fmt.Errorf("parse %s: %w", src.Describe(), err)
		}
		return build{scorer: booster, version: version, numTrees: booster.NumTrees()}, nil
	}
	return l
}

const remoteVersion = "remote"

// NewRemoteLoader activates a remote scorer once its health check passes.
func NewRemoteLoader(rs *RemoteScorer, adapter *Adapter, inst telemetry.Instruments) *Loader {
	l := newLoader(adapter, "remote:"+rs.serviceURL, inst)
	l.builder = func(ctx context.Context) (build, error) {
		if err := rs.Health(ctx); err != nil {
			return build{}, err
		}
		if adapter.Version() == remoteVersion {
			return build{version: remoteVersion}, nil
		}
		return build{scorer: rs, version: remoteVersion}, nil
	}
	return l
}

func newLoader(adapter *Adapter, describe string, inst telemetry.Instruments) *Loader {
	return &Loader{
		adapter:  adapter,
		describe: describe,
		reloads:  inst.ModelReloads,
		meta:     Metadata{Source: describe},
	}
}

// Load fetches and activates the model. Calls are serialized.
func (l *Loader) Load(ctx context.Context) error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	start := time.Now()
	b, err := l.builder(ctx)
	if err != nil {
		l.mu.Lock()
		l.meta.LastError = err.Error()
		l.mu.Unlock()
		l.count(ctx, "error")
		slog.Error("model load failed", "source", l.describe, "error", err)
		return err
	}

	if b.scorer == nil {
		l.mu.Lock()
		l.meta.LastError = ""
		l.mu.Unlock()
		l.count(ctx, "unchanged")
		slog.Debug("model unchanged", "source", l.describe, "version", b.version)
		return nil
	}

	l.adapter.Swap(b.scorer, b.version)

	l.mu.Lock()
	l.meta = Metadata{
		Version:      b.version,
		Source:       l.describe,
		NumTrees:     b.numTrees,
		Loaded:       true,
		LoadedAt:     start,
		LastReloadAt: time.Now(),
		ReloadCount:  l.meta.ReloadCount + 1,
	}
	l.mu.Unlock()

	l.count(ctx, "loaded")
	slog.Info("model loaded",
		"source", l.describe,
		"version", b.version,
		"trees", b.numTrees,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Metadata returns the current load statistics.
func (l *Loader) Metadata() Metadata {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta
}

// Ready reports whether a model is active.
func (l *Loader) Ready() bool {
	return l.adapter.Ready()
}

func (l *Loader) count(ctx context.Context, outcome string) {
	if l.reloads == nil {
		return
	}
	l.reloads.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
