package mqttshadow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

func TestTopicRoundTrip_ClassicShadow(t *testing.T) {
	key := shadow.ShadowKey{ThingName: "sensor-1"}

	assert.Equal(t, "$aws/things/sensor-1/shadow/update", updateTopic(key))
	assert.Equal(t, "$aws/things/sensor-1/shadow/delete", deleteTopic(key))

	thing, name, op, ok := parseTopic(updateTopic(key))
	assert.True(t, ok)
	assert.Equal(t, "sensor-1", thing)
	assert.Equal(t, "", name)
	assert.Equal(t, "update", op)
}

func TestTopicRoundTrip_NamedShadow(t *testing.T) {
	key := shadow.ShadowKey{ThingName: "sensor-1", ShadowName: "config"}

	assert.Equal(t, "$aws/things/sensor-1/shadow/name/config/delete", deleteTopic(key))

	thing, name, op, ok := parseTopic(deleteTopic(key))
	assert.True(t, ok)
	assert.Equal(t, "sensor-1", thing)
	assert.Equal(t, "config", name)
	assert.Equal(t, "delete", op)
}

func TestParseTopic_Unrecognized(t *testing.T) {
	_, _, _, ok := parseTopic("$aws/things/sensor-1/shadow/get/accepted")
	assert.False(t, ok)

	_, _, _, ok = parseTopic("some/other/topic")
	assert.False(t, ok)
}
