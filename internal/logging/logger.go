// Package logging provides config-driven categorized logging for porkvision.
// Each pipeline stage logs under its own category; categories can be switched
// off individually. Output goes through a single zap logger built from config.
// Until Initialize is called every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"porkvision/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot         Category = "boot"         // Startup, config load
	CategoryDetector     Category = "detector"     // Local pattern detection
	CategorySimilarity   Category = "similarity"   // Template corpus scoring
	CategoryExtraction   Category = "extraction"   // Payload salvage from engine text
	CategoryValidation   Category = "validation"   // Schema validation
	CategoryEngine       Category = "engine"       // Generative engine calls
	CategoryOrchestrator Category = "orchestrator" // Retry/degrade state machine
	CategoryReport       Category = "report"       // Report building
	CategoryStore        Category = "store"        // Report archive
	CategoryIngest       Category = "ingest"       // Input reading
	CategoryAudit        Category = "audit"        // Pipeline audit events
)

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	debugMode  bool
	loggers    = make(map[Category]*Logger)
)

// Initialize builds the process logger from config. Safe to call more than once;
// the last call wins.
func Initialize(cfg config.LoggingConfig) error {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.EffectiveLevel()))
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableStacktrace = true
	zcfg.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zcfg.OutputPaths = []string{cfg.File}
	}

	built, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	install(built, cfg.Categories, cfg.DebugMode)
	Get(CategoryBoot).Debug("logging initialized level=%s format=%s file=%q", level, cfg.Format, cfg.File)
	return nil
}

// UseLogger installs an existing zap logger. Tests use it with zaptest/observer.
func UseLogger(l *zap.Logger, cats map[string]bool) {
	install(l, cats, true)
}

func install(l *zap.Logger, cats map[string]bool, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	base = l
	categories = cats
	debugMode = debug
	loggers = make(map[Category]*Logger)
}

// Reset restores the no-op logger.
func Reset() {
	install(zap.NewNop(), nil, false)
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// IsDebugMode returns whether debug logging was requested in config.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }

func Detector(format string, args ...interface{})      { Get(CategoryDetector).Info(format, args...) }
func DetectorDebug(format string, args ...interface{}) { Get(CategoryDetector).Debug(format, args...) }

func Similarity(format string, args ...interface{})      { Get(CategorySimilarity).Info(format, args...) }
func SimilarityDebug(format string, args ...interface{}) { Get(CategorySimilarity).Debug(format, args...) }

func Extraction(format string, args ...interface{})      { Get(CategoryExtraction).Info(format, args...) }
func ExtractionDebug(format string, args ...interface{}) { Get(CategoryExtraction).Debug(format, args...) }
func ExtractionWarn(format string, args ...interface{})  { Get(CategoryExtraction).Warn(format, args...) }

func Validation(format string, args ...interface{})     { Get(CategoryValidation).Info(format, args...) }
func ValidationWarn(format string, args ...interface{}) { Get(CategoryValidation).Warn(format, args...) }

func Engine(format string, args ...interface{})      { Get(CategoryEngine).Info(format, args...) }
func EngineDebug(format string, args ...interface{}) { Get(CategoryEngine).Debug(format, args...) }
func EngineWarn(format string, args ...interface{})  { Get(CategoryEngine).Warn(format, args...) }
func EngineError(format string, args ...interface{}) { Get(CategoryEngine).Error(format, args...) }

func Orchestrator(format string, args ...interface{})      { Get(CategoryOrchestrator).Info(format, args...) }
func OrchestratorDebug(format string, args ...interface{}) { Get(CategoryOrchestrator).Debug(format, args...) }
func OrchestratorWarn(format string, args ...interface{})  { Get(CategoryOrchestrator).Warn(format, args...) }
func OrchestratorError(format string, args ...interface{}) { Get(CategoryOrchestrator).Error(format, args...) }

func Report(format string, args ...interface{})      { Get(CategoryReport).Info(format, args...) }
func ReportDebug(format string, args ...interface{}) { Get(CategoryReport).Debug(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func Ingest(format string, args ...interface{})      { Get(CategoryIngest).Info(format, args...) }
func IngestDebug(format string, args ...interface{}) { Get(CategoryIngest).Debug(format, args...) }

// =============================================================================
// REQUEST-SCOPED LOGGING
// =============================================================================

// RequestLogger tags every entry with an analysis request id.
type RequestLogger struct {
	*Logger
	requestID string
}

// WithRequestID creates a request-scoped logger.
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		Logger:    Get(category).With("req", requestID),
		requestID: requestID,
	}
}

// WithField adds a field to the request logger.
func (r *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	return &RequestLogger{Logger: r.Logger.With(key, value), requestID: r.requestID}
}

// RequestID returns the id this logger was created with.
func (r *RequestLogger) RequestID() string {
	return r.requestID
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

func init() {
	if os.Getenv("PORKVISION_LOG_STDERR") == "1" {
		l, err := zap.NewDevelopment()
		if err == nil {
			install(l, nil, true)
		}
	}
}
