package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_TopLevel(t *testing.T) {
	path := writeTestRecipe(t, `{"unknownSection": {}}`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestLoad_UnknownKey_TypoInStrategySection(t *testing.T) {
	path := writeTestRecipe(t, `{"strategy": {"typ": "periodic"}}`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy.typ")
	assert.Contains(t, err.Error(), "strategy.type")
}

func TestLoad_UnknownKey_NoSuggestionWhenFarFromEveryKnownKey(t *testing.T) {
	path := writeTestRecipe(t, `{"completelyUnrelatedKey": true}`)
	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoad_UnknownKey_RootMustBeObject(t *testing.T) {
	path := writeTestRecipe(t, `[]`)
	_, err := Load(path, testLogger(t))
	assert.Error(t, err)
}

func TestLevenshtein_IdenticalStringsAreZero(t *testing.T) {
	assert.Equal(t, 0, levenshtein("type", "type"))
}

func TestLevenshtein_SingleCharacterEdits(t *testing.T) {
	assert.Equal(t, 1, levenshtein("typ", "type"))
	assert.Equal(t, 1, levenshtein("tipe", "type"))
}

func TestClosestMatch_FindsWithinThreshold(t *testing.T) {
	assert.Equal(t, "type", closestMatch("typ", []string{"type", "delay"}))
}

func TestClosestMatch_ReturnsEmptyWhenTooFar(t *testing.T) {
	assert.Equal(t, "", closestMatch("zzzzzzzz", []string{"type", "delay"}))
}
