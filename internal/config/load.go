package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/gjson"
)

// Load reads and parses a JSON component-configuration recipe, validates
// it, and returns the resulting Config. Unknown top-level and
// "synchronize.*"/"strategy.*"/"rateLimits.*" keys are fatal errors with
// "did you mean?" suggestions (see unknown.go).
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config recipe", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config recipe %s: %w", path, err)
	}

	return Decode(data, logger)
}

// Decode parses raw JSON recipe bytes into a Config, starting from
// DefaultConfig() so unset fields retain their defaults.
func Decode(data []byte, logger *slog.Logger) (*Config, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("config recipe is not valid JSON")
	}

	if err := checkUnknownKeys(data); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config recipe: %w", err)
	}

	docs, err := decodeShadowDocuments(cfg.Synchronize.ShadowDocuments)
	if err != nil {
		return nil, fmt.Errorf("parsing synchronize.shadowDocuments: %w", err)
	}

	cfg.resolvedShadowDocuments = docs

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	logger.Debug("config recipe loaded",
		"synchronized_things", len(docs),
		"direction", cfg.Synchronize.Direction,
		"strategy", cfg.Strategy.Type,
	)

	return cfg, nil
}

// decodeShadowDocuments normalizes the dual list-or-map shape of
// "synchronize.shadowDocuments" (spec.md §6): either a JSON array of
// {thingName, classic, namedShadows} objects, or a JSON object keyed by
// thingName with {classic, namedShadows} values. Both shapes are merged
// when — unusually — both happen to be present is not possible in plain
// JSON (a key has one value), so "merged" here means: whichever shape is
// present is fully honored.
func decodeShadowDocuments(raw json.RawMessage) ([]ShadowDocumentConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	result := gjson.ParseBytes(raw)

	switch {
	case result.IsArray():
		return decodeShadowDocumentsArray(raw)
	case result.IsObject():
		return decodeShadowDocumentsMap(result)
	default:
		return nil, fmt.Errorf("shadowDocuments must be a JSON array or object, got %s", result.Type)
	}
}

func decodeShadowDocumentsArray(raw json.RawMessage) ([]ShadowDocumentConfig, error) {
	var docs []ShadowDocumentConfig
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}

	return docs, nil
}

func decodeShadowDocumentsMap(result gjson.Result) ([]ShadowDocumentConfig, error) {
	var (
		docs []ShadowDocumentConfig
		err  error
	)

	result.ForEach(func(key, value gjson.Result) bool {
		doc := ShadowDocumentConfig{
			ThingName: key.String(),
			Classic:   value.Get("classic").Bool(),
		}

		for _, sh := range value.Get("namedShadows").Array() {
			doc.NamedShadows = append(doc.NamedShadows, sh.String())
		}

		docs = append(docs, doc)

		return true
	})

	return docs, err
}
