// Package config implements JSON configuration loading, validation, and
// hot-reload of the sync engine's Config Snapshot. Shadow-manager
// configuration arrives as an AWS-IoT-style component recipe: a nested JSON
// object (synchronize, strategy, rateLimits sections) rather than a flat
// TOML file.
package config

import "encoding/json"

// Direction selects which side of a sync is allowed to propagate
// (spec.md §4.8).
type Direction string

// Recognized "synchronize.direction" values.
const (
	DirectionBetween       Direction = "betweenDeviceAndCloud"
	DirectionDeviceToCloud Direction = "deviceToCloud"
	DirectionCloudToDevice Direction = "cloudToDevice"
)

// StrategyType selects the sync scheduling strategy (spec.md §4.5).
type StrategyType string

// Recognized "strategy.type" values.
const (
	StrategyRealTime StrategyType = "realTime"
	StrategyPeriodic StrategyType = "periodic"
)

// CoreThingConfig is the "synchronize.coreThing" section: the local
// device's own thing, expressed separately from the general shadowDocuments
// list because it never carries an explicit thingName.
type CoreThingConfig struct {
	Classic      bool     `json:"classic"`
	NamedShadows []string `json:"namedShadows"`
}

// ShadowDocumentConfig describes one thing's set of synchronized shadows.
// Decoded from either a JSON array element or a map value — see load.go's
// decodeShadowDocuments for the dual-shape handling.
type ShadowDocumentConfig struct {
	ThingName    string   `json:"thingName"`
	Classic      bool     `json:"classic"`
	NamedShadows []string `json:"namedShadows"`
}

// SynchronizeConfig is the "synchronize" section of the recipe.
// ShadowDocuments is kept as raw JSON because it may be either a list or a
// map keyed by thingName (spec.md §6); decodeShadowDocuments in load.go
// normalizes both shapes into []ShadowDocumentConfig.
type SynchronizeConfig struct {
	CoreThing       CoreThingConfig `json:"coreThing"`
	ShadowDocuments json.RawMessage `json:"shadowDocuments"`
	Direction       Direction       `json:"direction"`
}

// RateLimits holds the three token-bucket limits from spec.md §4.7/§3.
type RateLimits struct {
	MaxOutboundSyncUpdatesPerSecond   int `json:"maxOutboundSyncUpdatesPerSecond"`
	MaxTotalLocalRequestsRate         int `json:"maxTotalLocalRequestsRate"`
	MaxLocalRequestsPerSecondPerThing int `json:"maxLocalRequestsPerSecondPerThing"`
}

// Strategy holds the scheduling-strategy selection and its periodic delay.
type Strategy struct {
	Type  StrategyType `json:"type"`
	Delay int          `json:"delay"` // seconds, periodic only
}

// Config is the top-level, as-decoded configuration structure — the
// pre-validation, pre-resolution representation of the JSON recipe file.
// Resolve() turns this into an immutable *ConfigSnapshot.
type Config struct {
	Synchronize                  SynchronizeConfig `json:"synchronize"`
	Strategy                     Strategy          `json:"strategy"`
	RateLimits                   RateLimits        `json:"rateLimits"`
	ShadowDocumentSizeLimitBytes int               `json:"shadowDocumentSizeLimitBytes"`

	// resolvedShadowDocuments is populated by decodeShadowDocuments after
	// the raw JSON pass, normalizing the list-or-map dual shape.
	resolvedShadowDocuments []ShadowDocumentConfig
}
