package config

import (
	"errors"
	"fmt"
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so a
// misconfigured recipe reports every problem in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateDirection(cfg)...)
	errs = append(errs, validateStrategy(cfg)...)
	errs = append(errs, validateRateLimits(cfg)...)
	errs = append(errs, validateSizeLimit(cfg)...)
	errs = append(errs, validateShadowDocuments(cfg)...)

	if len(errs) == 0 {
		return nil
	}

	return errors.Join(errs...)
}

func validateDirection(cfg *Config) []error {
	switch cfg.Synchronize.Direction {
	case "", DirectionBetween, DirectionDeviceToCloud, DirectionCloudToDevice:
		return nil
	default:
		return []error{fmt.Errorf(
			"synchronize.direction: invalid value %q (want betweenDeviceAndCloud, deviceToCloud, or cloudToDevice)",
			cfg.Synchronize.Direction)}
	}
}

func validateStrategy(cfg *Config) []error {
	var errs []error

	switch cfg.Strategy.Type {
	case "", StrategyRealTime, StrategyPeriodic:
	default:
		errs = append(errs, fmt.Errorf(
			"strategy.type: invalid value %q (want realTime or periodic)", cfg.Strategy.Type))
	}

	if cfg.Strategy.Type == StrategyPeriodic && cfg.Strategy.Delay <= 0 {
		errs = append(errs, errors.New("strategy.delay: must be > 0 seconds when strategy.type is periodic"))
	}

	return errs
}

func validateRateLimits(cfg *Config) []error {
	var errs []error

	if cfg.RateLimits.MaxOutboundSyncUpdatesPerSecond < 0 {
		errs = append(errs, errors.New("rateLimits.maxOutboundSyncUpdatesPerSecond: must be >= 0"))
	}

	if cfg.RateLimits.MaxTotalLocalRequestsRate < 0 {
		errs = append(errs, errors.New("rateLimits.maxTotalLocalRequestsRate: must be >= 0"))
	}

	if cfg.RateLimits.MaxLocalRequestsPerSecondPerThing < 0 {
		errs = append(errs, errors.New("rateLimits.maxLocalRequestsPerSecondPerThing: must be >= 0"))
	}

	return errs
}

func validateSizeLimit(cfg *Config) []error {
	if cfg.ShadowDocumentSizeLimitBytes < 0 {
		return []error{errors.New("shadowDocumentSizeLimitBytes: must be >= 0")}
	}

	if cfg.ShadowDocumentSizeLimitBytes > MaxShadowDocumentSizeLimitBytes {
		return []error{fmt.Errorf(
			"shadowDocumentSizeLimitBytes: %d exceeds hard ceiling %d",
			cfg.ShadowDocumentSizeLimitBytes, MaxShadowDocumentSizeLimitBytes)}
	}

	return nil
}

func validateShadowDocuments(cfg *Config) []error {
	var errs []error

	seen := make(map[string]bool, len(cfg.resolvedShadowDocuments))

	for _, doc := range cfg.resolvedShadowDocuments {
		if doc.ThingName == "" {
			errs = append(errs, errors.New("synchronize.shadowDocuments: entry with empty thingName"))
			continue
		}

		if seen[doc.ThingName] {
			errs = append(errs, fmt.Errorf(
				"synchronize.shadowDocuments: duplicate thingName %q", doc.ThingName))
		}

		seen[doc.ThingName] = true

		if !doc.Classic && len(doc.NamedShadows) == 0 {
			errs = append(errs, fmt.Errorf(
				"synchronize.shadowDocuments: thing %q has neither classic nor namedShadows", doc.ThingName))
		}
	}

	return errs
}
