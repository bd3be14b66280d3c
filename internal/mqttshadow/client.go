// Package mqttshadow implements the MQTT Topic Manager (spec.md §4.6): it
// keeps a device's shadow update/delete topic subscriptions in sync with
// the configured shadow set, retries subscribe/unsubscribe while connected,
// and routes inbound publishes to the sync engine as LocalUpdate/LocalDelete
// requests.
//
// The wire-level MQTT client is out of scope (spec.md §1, §6) and is never
// given a concrete broker implementation here; MQTTClient is the injected
// boundary a daemon wires to whatever broker library it chooses.
package mqttshadow

import (
	"context"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

// MQTTClient is the minimal broker client surface the Topic Manager needs.
// Implementations are responsible for reconnection at the transport level;
// this package only reacts to the connect/disconnect edges.
type MQTTClient interface {
	Subscribe(ctx context.Context, topic string) error
	Unsubscribe(ctx context.Context, topic string) error
	SetMessageHandler(handler func(topic string, payload []byte))
	SetConnectHandler(handler func())
	SetDisconnectHandler(handler func())
}

// SyncHandler is the subset of shadow.Handler the Topic Manager calls into
// on inbound cloud publishes.
type SyncHandler interface {
	PushLocalUpdateSyncRequest(ctx context.Context, key shadow.ShadowKey, payload []byte) error
	PushLocalDeleteSyncRequest(ctx context.Context, key shadow.ShadowKey, deletedCloudVersion int64) error
}
