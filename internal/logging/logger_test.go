package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"porkvision/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, cats map[string]bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	UseLogger(zap.New(core), cats)
	t.Cleanup(Reset)
	return logs
}

func TestNoopBeforeInitialize(t *testing.T) {
	Reset()
	// Must not panic and must not write anywhere.
	Engine("request %d", 1)
	Get(CategoryDetector).Error("nothing")
	assert.False(t, IsDebugMode())
}

func TestAllCategoriesLog(t *testing.T) {
	logs := observe(t, nil)

	all := []Category{
		CategoryBoot, CategoryDetector, CategorySimilarity, CategoryExtraction,
		CategoryValidation, CategoryEngine, CategoryOrchestrator, CategoryReport,
		CategoryStore, CategoryIngest, CategoryAudit,
	}
	for _, cat := range all {
		Get(cat).Info("hello from %s", cat)
	}

	require.Equal(t, len(all), logs.Len())
	for i, entry := range logs.All() {
		assert.Equal(t, string(all[i]), entry.LoggerName)
		assert.Equal(t, "hello from "+string(all[i]), entry.Message)
	}
}

func TestCategoryToggle(t *testing.T) {
	logs := observe(t, map[string]bool{"engine": false, "detector": true})

	assert.False(t, IsCategoryEnabled(CategoryEngine))
	assert.True(t, IsCategoryEnabled(CategoryDetector))
	assert.True(t, IsCategoryEnabled(CategoryStore), "unlisted categories stay on")

	EngineWarn("suppressed")
	Detector("kept")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}

func TestConvenienceLevels(t *testing.T) {
	logs := observe(t, nil)

	ExtractionWarn("w")
	OrchestratorError("e")
	SimilarityDebug("d")

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.DebugLevel).Len())
}

func TestRequestLogger(t *testing.T) {
	logs := observe(t, nil)

	rl := WithRequestID(CategoryOrchestrator, "req-42").WithField("attempt", 2)
	rl.Info("sending")

	assert.Equal(t, "req-42", rl.RequestID())
	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", ctx["req"])
	assert.EqualValues(t, 2, ctx["attempt"])
}

func TestTimerLogging(t *testing.T) {
	logs := observe(t, nil)

	timer := StartTimer(CategoryEngine, "generate")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Millisecond)

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Contains(t, logs.All()[0].Message, "generate took")

	StartTimer(CategoryEngine, "fast").Stop()
	assert.Equal(t, 2, logs.Len())
}

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "porkvision.log")
	t.Cleanup(Reset)

	err := Initialize(config.LoggingConfig{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	Store("archived %s", "abc")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "archived abc"))
	assert.True(t, strings.Contains(string(data), `"logger":"store"`))
}

func TestInitializeLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "porkvision.log")
	t.Cleanup(Reset)

	require.NoError(t, Initialize(config.LoggingConfig{Level: "warn", Format: "json", File: path}))

	StoreDebug("hidden")
	StoreError("visible")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}
