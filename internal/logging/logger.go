// Package logging provides categorized structured logging for resetdb.
// Every category is a named child of one zap logger; until Initialize is
// called all loggers are no-ops, so packages can log unconditionally.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config loading
	CategoryRegistry Category = "registry" // Manifest loading, schema introspection
	CategoryStore    Category = "store"    // Connections and statements
	CategoryEraser   Category = "eraser"   // Plan resolution and deletion phases
	CategoryPrompt   Category = "prompt"   // Confirmation handling
)

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // empty = stderr
	Categories map[string]bool // per-category toggles; missing = enabled
	AuditFile  string          // empty = audit trail disabled
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	level      = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	categories map[string]bool
)

// Initialize builds the process-wide logger from opts.
func Initialize(opts Options) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(defaultString(opts.Level, "warn")))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	if opts.Format == "json" {
		cfg.Encoding = "json"
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if opts.File != "" {
		cfg.OutputPaths = []string{opts.File}
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	base = logger
	level = cfg.Level
	categories = opts.Categories
	mu.Unlock()

	if err := initAudit(opts.AuditFile); err != nil {
		return err
	}

	Get(CategoryBoot).Debugw("logging initialized", "level", lvl.String(), "format", cfg.Encoding)
	return nil
}

// Replace swaps the base logger (tests use zaptest / observer loggers).
func Replace(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	categories = nil
}

// SetLevel changes the minimum level at runtime (e.g. --verbose).
func SetLevel(l zapcore.Level) {
	mu.RLock()
	defer mu.RUnlock()
	level.SetLevel(l)
}

// Base returns the underlying zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	return !exists || enabled
}

// Get returns the logger for a category; disabled categories get a no-op logger.
func Get(category Category) *zap.SugaredLogger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop().Sugar()
	}
	return Base().Named(string(category)).Sugar()
}

// Sync flushes buffered log entries (call at shutdown).
func Sync() {
	_ = Base().Sync()
	syncAudit()
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

// Registry logs to the registry category
func Registry(format string, args ...interface{}) {
	Get(CategoryRegistry).Infof(format, args...)
}

// RegistryDebug logs debug to the registry category
func RegistryDebug(format string, args ...interface{}) {
	Get(CategoryRegistry).Debugf(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Infof(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debugf(format, args...)
}

// Eraser logs to the eraser category
func Eraser(format string, args ...interface{}) {
	Get(CategoryEraser).Infof(format, args...)
}

// EraserDebug logs debug to the eraser category
func EraserDebug(format string, args ...interface{}) {
	Get(CategoryEraser).Debugf(format, args...)
}

// EraserWarn logs warning to the eraser category
func EraserWarn(format string, args ...interface{}) {
	Get(CategoryEraser).Warnf(format, args...)
}

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer starts timing operation under category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugw(t.op+" completed", "duration", elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warnw(t.op+" was slow", "duration", elapsed, "threshold", threshold)
	} else {
		Get(t.category).Debugw(t.op+" completed", "duration", elapsed)
	}
	return elapsed
}
