package config

import "fmt"

// ShadowKey identifies one (thingName, shadowName) pair. ShadowName is ""
// for the classic shadow (spec.md §3 Glossary).
type ShadowKey struct {
	ThingName  string
	ShadowName string
}

func (k ShadowKey) String() string {
	if k.ShadowName == "" {
		return k.ThingName
	}

	return fmt.Sprintf("%s/%s", k.ThingName, k.ShadowName)
}

// ConfigSnapshot is the immutable, fully-resolved configuration consumed by
// the sync engine while a strategy runs (spec.md §3 "Config Snapshot").
// Configuration changes never mutate a snapshot in place; Holder.Update
// swaps in a new one atomically.
type ConfigSnapshot struct {
	// Synchronize is the ordered set of (thingName, shadowName) pairs under
	// sync configuration, core thing first, in file order thereafter.
	Synchronize []ShadowKey
	Direction   Direction
	Strategy    Strategy
	RateLimits  RateLimits
	// ShadowDocumentSizeLimitBytes bounds accepted shadow payloads.
	ShadowDocumentSizeLimitBytes int
}

// Contains reports whether key is in the synchronized set.
func (s *ConfigSnapshot) Contains(key ShadowKey) bool {
	for _, k := range s.Synchronize {
		if k == key {
			return true
		}
	}

	return false
}

// Resolve builds an immutable ConfigSnapshot from a decoded Config,
// applying defaults for zero-valued rate limits and size limit.
func Resolve(cfg *Config) *ConfigSnapshot {
	snap := &ConfigSnapshot{
		Direction:                    cfg.Synchronize.Direction,
		Strategy:                     cfg.Strategy,
		RateLimits:                   cfg.RateLimits,
		ShadowDocumentSizeLimitBytes: cfg.ShadowDocumentSizeLimitBytes,
	}

	if snap.Direction == "" {
		snap.Direction = DirectionBetween
	}

	if snap.Strategy.Type == "" {
		snap.Strategy.Type = StrategyRealTime
	}

	applyRateLimitDefaults(&snap.RateLimits)

	if snap.ShadowDocumentSizeLimitBytes == 0 {
		snap.ShadowDocumentSizeLimitBytes = DefaultShadowDocumentSizeLimitBytes
	}

	snap.Synchronize = buildSynchronizeSet(cfg)

	return snap
}

func applyRateLimitDefaults(rl *RateLimits) {
	if rl.MaxOutboundSyncUpdatesPerSecond == 0 {
		rl.MaxOutboundSyncUpdatesPerSecond = DefaultMaxOutboundSyncUpdatesPerSecond
	}

	if rl.MaxTotalLocalRequestsRate == 0 {
		rl.MaxTotalLocalRequestsRate = DefaultMaxTotalLocalRequestsRate
	}

	if rl.MaxLocalRequestsPerSecondPerThing == 0 {
		rl.MaxLocalRequestsPerSecondPerThing = DefaultMaxLocalRequestsPerSecondPerThing
	}
}

// buildSynchronizeSet flattens coreThing + shadowDocuments into the ordered
// key set, core thing's classic shadow first, then its named shadows, then
// the remaining configured things in file order.
func buildSynchronizeSet(cfg *Config) []ShadowKey {
	var keys []ShadowKey

	ct := cfg.Synchronize.CoreThing
	if ct.Classic {
		keys = append(keys, ShadowKey{ThingName: coreThingName, ShadowName: ""})
	}

	for _, sh := range ct.NamedShadows {
		keys = append(keys, ShadowKey{ThingName: coreThingName, ShadowName: sh})
	}

	for _, doc := range cfg.resolvedShadowDocuments {
		if doc.Classic {
			keys = append(keys, ShadowKey{ThingName: doc.ThingName, ShadowName: ""})
		}

		for _, sh := range doc.NamedShadows {
			keys = append(keys, ShadowKey{ThingName: doc.ThingName, ShadowName: sh})
		}
	}

	return dedupeKeys(keys)
}

func dedupeKeys(keys []ShadowKey) []ShadowKey {
	seen := make(map[ShadowKey]bool, len(keys))

	out := make([]ShadowKey, 0, len(keys))

	for _, k := range keys {
		if seen[k] {
			continue
		}

		seen[k] = true

		out = append(out, k)
	}

	return out
}

// coreThingName is a placeholder identity for the local device's own thing
// until the real thing name is injected at load time (see WithCoreThingName).
const coreThingName = "\x00core"

// WithCoreThingName replaces the coreThingName placeholder in a snapshot's
// synchronize set with the device's actual, runtime-discovered thing name.
func WithCoreThingName(snap *ConfigSnapshot, thingName string) *ConfigSnapshot {
	out := *snap
	out.Synchronize = make([]ShadowKey, len(snap.Synchronize))

	for i, k := range snap.Synchronize {
		if k.ThingName == coreThingName {
			k.ThingName = thingName
		}

		out.Synchronize[i] = k
	}

	return &out
}
