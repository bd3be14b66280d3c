package mqttshadow

import (
	"fmt"
	"regexp"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

// topicRegex matches $aws/things/{thing}/shadow/update and
// $aws/things/{thing}/shadow/name/{shadow}/delete (spec.md §4.6 "a fixed
// regex").
var topicRegex = regexp.MustCompile(`^\$aws/things/([^/]+)/shadow(?:/name/([^/]+))?/(update|delete)$`)

func shadowTopicPrefix(key shadow.ShadowKey) string {
	if key.ShadowName == "" {
		return fmt.Sprintf("$aws/things/%s/shadow", key.ThingName)
	}

	return fmt.Sprintf("$aws/things/%s/shadow/name/%s", key.ThingName, key.ShadowName)
}

func updateTopic(key shadow.ShadowKey) string { return shadowTopicPrefix(key) + "/update" }
func deleteTopic(key shadow.ShadowKey) string { return shadowTopicPrefix(key) + "/delete" }

// parseTopic extracts (thing, shadowName, op) from an inbound publish
// topic. op is "update" or "delete". ok is false for any topic that does
// not match the fixed shadow topic shape.
func parseTopic(topic string) (thing, shadowName, op string, ok bool) {
	m := topicRegex.FindStringSubmatch(topic)
	if m == nil {
		return "", "", "", false
	}

	return m[1], m[2], m[3], true
}
