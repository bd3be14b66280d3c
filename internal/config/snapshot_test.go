package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_AppliesDefaultsForZeroValues(t *testing.T) {
	cfg := &Config{}
	snap := Resolve(cfg)

	assert.Equal(t, DirectionBetween, snap.Direction)
	assert.Equal(t, StrategyRealTime, snap.Strategy.Type)
	assert.Equal(t, DefaultMaxOutboundSyncUpdatesPerSecond, snap.RateLimits.MaxOutboundSyncUpdatesPerSecond)
	assert.Equal(t, DefaultShadowDocumentSizeLimitBytes, snap.ShadowDocumentSizeLimitBytes)
}

func TestResolve_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Synchronize: SynchronizeConfig{Direction: DirectionCloudToDevice},
		Strategy:    Strategy{Type: StrategyPeriodic, Delay: 15},
	}
	snap := Resolve(cfg)

	assert.Equal(t, DirectionCloudToDevice, snap.Direction)
	assert.Equal(t, StrategyPeriodic, snap.Strategy.Type)
	assert.Equal(t, 15, snap.Strategy.Delay)
}

func TestResolve_BuildsSynchronizeSetCoreThingFirst(t *testing.T) {
	cfg := &Config{
		Synchronize: SynchronizeConfig{
			CoreThing: CoreThingConfig{Classic: true, NamedShadows: []string{"diagnostics"}},
		},
	}
	cfg.resolvedShadowDocuments = []ShadowDocumentConfig{
		{ThingName: "sensor-1", Classic: true, NamedShadows: []string{"config"}},
	}

	snap := Resolve(cfg)

	require := assert.New(t)
	require.Len(snap.Synchronize, 4)
	require.Equal(ShadowKey{ThingName: coreThingName, ShadowName: ""}, snap.Synchronize[0])
	require.Equal(ShadowKey{ThingName: coreThingName, ShadowName: "diagnostics"}, snap.Synchronize[1])
	require.Equal(ShadowKey{ThingName: "sensor-1", ShadowName: ""}, snap.Synchronize[2])
	require.Equal(ShadowKey{ThingName: "sensor-1", ShadowName: "config"}, snap.Synchronize[3])
}

func TestResolve_DedupesRepeatedKeys(t *testing.T) {
	cfg := &Config{}
	cfg.resolvedShadowDocuments = []ShadowDocumentConfig{
		{ThingName: "sensor-1", Classic: true},
		{ThingName: "sensor-1", Classic: true},
	}

	snap := Resolve(cfg)
	assert.Len(t, snap.Synchronize, 1)
}

func TestConfigSnapshot_Contains(t *testing.T) {
	snap := &ConfigSnapshot{Synchronize: []ShadowKey{{ThingName: "sensor-1"}}}

	assert.True(t, snap.Contains(ShadowKey{ThingName: "sensor-1"}))
	assert.False(t, snap.Contains(ShadowKey{ThingName: "sensor-2"}))
}

func TestWithCoreThingName_ReplacesPlaceholder(t *testing.T) {
	cfg := &Config{
		Synchronize: SynchronizeConfig{
			CoreThing: CoreThingConfig{Classic: true},
		},
	}
	cfg.resolvedShadowDocuments = []ShadowDocumentConfig{{ThingName: "sensor-1", Classic: true}}

	snap := Resolve(cfg)
	resolved := WithCoreThingName(snap, "edge-device-42")

	assert.Equal(t, ShadowKey{ThingName: "edge-device-42"}, resolved.Synchronize[0])
	assert.Equal(t, ShadowKey{ThingName: "sensor-1"}, resolved.Synchronize[1])

	// Original snapshot must be untouched (immutable swap, not in-place edit).
	assert.Equal(t, ShadowKey{ThingName: coreThingName}, snap.Synchronize[0])
}

func TestShadowKey_String(t *testing.T) {
	assert.Equal(t, "sensor-1", ShadowKey{ThingName: "sensor-1"}.String())
	assert.Equal(t, "sensor-1/config", ShadowKey{ThingName: "sensor-1", ShadowName: "config"}.String())
}
