package config

// Default values for configuration options, matching spec.md §3.
const (
	DefaultMaxOutboundSyncUpdatesPerSecond   = 100
	DefaultMaxTotalLocalRequestsRate         = 200
	DefaultMaxLocalRequestsPerSecondPerThing = 20
	DefaultShadowDocumentSizeLimitBytes      = 8192
	MaxShadowDocumentSizeLimitBytes          = 30720
)

// DefaultConfig returns a Config populated with all default values. Used
// both as the decode target (so unset fields retain defaults) and as the
// fallback when no recipe file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Strategy: Strategy{Type: StrategyRealTime},
		RateLimits: RateLimits{
			MaxOutboundSyncUpdatesPerSecond:   DefaultMaxOutboundSyncUpdatesPerSecond,
			MaxTotalLocalRequestsRate:         DefaultMaxTotalLocalRequestsRate,
			MaxLocalRequestsPerSecondPerThing: DefaultMaxLocalRequestsPerSecondPerThing,
		},
		ShadowDocumentSizeLimitBytes: DefaultShadowDocumentSizeLimitBytes,
		Synchronize: SynchronizeConfig{
			Direction: DirectionBetween,
		},
	}
}
