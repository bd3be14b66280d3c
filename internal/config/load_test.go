package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeTestRecipe(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_ValidFullRecipe(t *testing.T) {
	recipe := `{
		"synchronize": {
			"coreThing": {"classic": true, "namedShadows": ["diagnostics"]},
			"shadowDocuments": [
				{"thingName": "sensor-1", "classic": true}
			],
			"direction": "deviceToCloud"
		},
		"strategy": {"type": "periodic", "delay": 30},
		"rateLimits": {
			"maxOutboundSyncUpdatesPerSecond": 50,
			"maxTotalLocalRequestsRate": 100,
			"maxLocalRequestsPerSecondPerThing": 10
		},
		"shadowDocumentSizeLimitBytes": 4096
	}`

	cfg, err := Load(writeTestRecipe(t, recipe), testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, DirectionDeviceToCloud, cfg.Synchronize.Direction)
	assert.Equal(t, StrategyPeriodic, cfg.Strategy.Type)
	assert.Equal(t, 30, cfg.Strategy.Delay)
	assert.Equal(t, 4096, cfg.ShadowDocumentSizeLimitBytes)
	assert.Len(t, cfg.resolvedShadowDocuments, 1)
	assert.Equal(t, "sensor-1", cfg.resolvedShadowDocuments[0].ThingName)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), testLogger(t))
	assert.Error(t, err)
}

func TestDecode_AppliesDefaultsForUnsetFields(t *testing.T) {
	cfg, err := Decode([]byte(`{}`), testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, StrategyRealTime, cfg.Strategy.Type)
	assert.Equal(t, DirectionBetween, cfg.Synchronize.Direction)
	assert.Equal(t, DefaultShadowDocumentSizeLimitBytes, cfg.ShadowDocumentSizeLimitBytes)
}

func TestDecode_InvalidJSONFails(t *testing.T) {
	_, err := Decode([]byte(`{not json`), testLogger(t))
	assert.Error(t, err)
}

func TestDecode_UnknownTopLevelKeyFails(t *testing.T) {
	_, err := Decode([]byte(`{"synchronise": {}}`), testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.Contains(t, err.Error(), "did you mean")
}

func TestDecode_InvalidValuesAccumulateAllErrors(t *testing.T) {
	_, err := Decode([]byte(`{
		"synchronize": {"direction": "sideways"},
		"strategy": {"type": "periodic", "delay": 0},
		"rateLimits": {"maxTotalLocalRequestsRate": -1}
	}`), testLogger(t))

	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "synchronize.direction")
	assert.Contains(t, msg, "strategy.delay")
	assert.Contains(t, msg, "rateLimits.maxTotalLocalRequestsRate")
}

func TestDecode_ShadowDocumentsAsMapShape(t *testing.T) {
	cfg, err := Decode([]byte(`{
		"synchronize": {
			"shadowDocuments": {
				"sensor-1": {"classic": true},
				"sensor-2": {"namedShadows": ["config"]}
			}
		}
	}`), testLogger(t))
	require.NoError(t, err)

	require.Len(t, cfg.resolvedShadowDocuments, 2)

	byName := make(map[string]ShadowDocumentConfig, 2)
	for _, d := range cfg.resolvedShadowDocuments {
		byName[d.ThingName] = d
	}

	assert.True(t, byName["sensor-1"].Classic)
	assert.Equal(t, []string{"config"}, byName["sensor-2"].NamedShadows)
}

func TestDecode_ShadowDocumentsAsArrayShape(t *testing.T) {
	cfg, err := Decode([]byte(`{
		"synchronize": {
			"shadowDocuments": [{"thingName": "sensor-1", "classic": true}]
		}
	}`), testLogger(t))
	require.NoError(t, err)

	require.Len(t, cfg.resolvedShadowDocuments, 1)
	assert.Equal(t, "sensor-1", cfg.resolvedShadowDocuments[0].ThingName)
}

func TestDecode_ShadowDocumentsWrongShapeFails(t *testing.T) {
	_, err := Decode([]byte(`{"synchronize": {"shadowDocuments": "sensor-1"}}`), testLogger(t))
	assert.Error(t, err)
}
