package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownTopKeys are the valid top-level keys in the recipe file.
var knownTopKeys = map[string]bool{
	"synchronize": true, "strategy": true, "rateLimits": true,
	"shadowDocumentSizeLimitBytes": true,
}

// knownSynchronizeKeys are the valid keys inside "synchronize".
var knownSynchronizeKeys = map[string]bool{
	"coreThing": true, "shadowDocuments": true, "direction": true,
}

// knownStrategyKeys are the valid keys inside "strategy".
var knownStrategyKeys = map[string]bool{"type": true, "delay": true}

// knownRateLimitsKeys are the valid keys inside "rateLimits".
var knownRateLimitsKeys = map[string]bool{
	"maxOutboundSyncUpdatesPerSecond":   true,
	"maxTotalLocalRequestsRate":         true,
	"maxLocalRequestsPerSecondPerThing": true,
}

// checkUnknownKeys walks the top level and the three known sub-sections of
// the recipe, reporting any key that isn't recognized together with a
// "did you mean?" suggestion when one is close by edit distance.
// "synchronize.shadowDocuments" is intentionally not walked further here:
// its dual list-or-map shape is validated by decodeShadowDocuments instead.
func checkUnknownKeys(data []byte) error {
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("config recipe root must be a JSON object")
	}

	var errs []error

	errs = append(errs, checkSection("", root, knownTopKeys)...)

	if sync := root.Get("synchronize"); sync.Exists() && sync.IsObject() {
		errs = append(errs, checkSection("synchronize.", sync, knownSynchronizeKeys)...)
	}

	if strat := root.Get("strategy"); strat.Exists() && strat.IsObject() {
		errs = append(errs, checkSection("strategy.", strat, knownStrategyKeys)...)
	}

	if rl := root.Get("rateLimits"); rl.Exists() && rl.IsObject() {
		errs = append(errs, checkSection("rateLimits.", rl, knownRateLimitsKeys)...)
	}

	if len(errs) == 0 {
		return nil
	}

	return errors.Join(errs...)
}

func checkSection(prefix string, section gjson.Result, known map[string]bool) []error {
	var errs []error

	section.ForEach(func(key, _ gjson.Result) bool {
		k := key.String()
		if known[k] {
			return true
		}

		msg := fmt.Sprintf("unknown config key %q", prefix+k)
		if suggestion := closestMatch(k, sortedKeys(known)); suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", prefix+suggestion)
		}

		errs = append(errs, errors.New(msg))

		return true
	})

	return errs
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
