// Package logging provides categorized zap-backed logging for pciassist.
// Each subsystem logs through a named child logger so log lines can be
// filtered by category.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryPipeline  Category = "pipeline"  // per-observation orchestration
	CategoryRetrieval Category = "retrieval" // hybrid context retrieval
	CategoryIndex     Category = "index"     // vector index build/query
	CategoryEmbedding Category = "embedding" // embedding engine
	CategoryLLM       Category = "llm"       // Gemini API calls
	CategoryIngest    Category = "ingest"    // spreadsheet parsing
	CategoryReport    Category = "report"    // report assembly
	CategoryServer    Category = "server"    // HTTP layer
)

var (
	mu      sync.RWMutex
	base    *zap.SugaredLogger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Init builds the process-wide logger. Should be called once at startup;
// verbose enables debug-level output.
func Init(verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger.Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the logger for a category. Safe to call before Init; falls
// back to a no-op logger so library code never has to nil-check.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = zap.NewNop().Sugar()
	}
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := base.Named(string(cat))
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}
