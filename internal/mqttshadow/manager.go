package mqttshadow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

// Retry tuning for subscribe/unsubscribe (spec.md §4.6: "initial 3s, cap
// 60s, unbounded attempts while connected").
const (
	retryBaseDelay = 3 * time.Second
	retryCapDelay  = 60 * time.Second
)

// TopicManager maintains the device's MQTT shadow topic subscriptions,
// diffing the desired set against the actual set and reconciling with
// retry whenever the target set or the connection state changes (spec.md
// §4.6).
type TopicManager struct {
	client  MQTTClient
	handler SyncHandler
	logger  *slog.Logger

	mu     sync.Mutex
	target []shadow.ShadowKey

	// actual is mutated only by worker; connect/disconnect callbacks are
	// read-only observers that merely request a reconcile (spec.md §5
	// "Subscription sets in the MQTT manager are mutated only by the
	// single subscription worker").
	actual map[string]bool

	connected atomic.Bool
	dropped   atomic.Bool
	reconcile chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a TopicManager and wires its callbacks onto client. Call
// Start to begin the subscription worker.
func New(client MQTTClient, handler SyncHandler, logger *slog.Logger) *TopicManager {
	tm := &TopicManager{
		client:    client,
		handler:   handler,
		logger:    logger,
		actual:    make(map[string]bool),
		reconcile: make(chan struct{}, 1),
	}

	client.SetMessageHandler(tm.onMessage)
	client.SetConnectHandler(tm.onConnect)
	client.SetDisconnectHandler(tm.onDisconnect)

	return tm
}

// Start launches the subscription worker goroutine.
func (tm *TopicManager) Start(ctx context.Context) {
	ctx, tm.cancel = context.WithCancel(ctx)

	tm.wg.Add(1)

	go tm.worker(ctx)
}

// Stop cancels the worker and waits for it to exit.
func (tm *TopicManager) Stop() {
	if tm.cancel != nil {
		tm.cancel()
	}

	tm.wg.Wait()
}

// SetTarget replaces the desired synchronized shadow set and requests a
// reconcile (spec.md §4.6 "on configuration change ... diffs desired vs.
// actual subscriptions").
func (tm *TopicManager) SetTarget(keys []shadow.ShadowKey) {
	tm.mu.Lock()
	tm.target = append([]shadow.ShadowKey(nil), keys...)
	tm.mu.Unlock()

	tm.requestReconcile()
}

func (tm *TopicManager) requestReconcile() {
	select {
	case tm.reconcile <- struct{}{}:
	default:
	}
}

func (tm *TopicManager) onConnect() {
	tm.connected.Store(true)
	tm.requestReconcile()
}

func (tm *TopicManager) onDisconnect() {
	tm.connected.Store(false)
	tm.dropped.Store(true)
}

func (tm *TopicManager) worker(ctx context.Context) {
	defer tm.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tm.reconcile:
			tm.runReconcile(ctx)
		}
	}
}

// runReconcile diffs the desired topic set against tm.actual and applies
// the delta with retry. It owns tm.actual exclusively.
func (tm *TopicManager) runReconcile(ctx context.Context) {
	// The broker discards subscriptions on disconnect; the saved target set
	// drives a full resubscription on the next connect.
	if tm.dropped.Swap(false) || !tm.connected.Load() {
		tm.actual = make(map[string]bool)
	}

	if !tm.connected.Load() {
		return
	}

	tm.mu.Lock()
	target := append([]shadow.ShadowKey(nil), tm.target...)
	tm.mu.Unlock()

	desired := make(map[string]bool, len(target)*2)
	for _, k := range target {
		desired[updateTopic(k)] = true
		desired[deleteTopic(k)] = true
	}

	for topic := range desired {
		if tm.actual[topic] {
			continue
		}

		if !tm.applyWithRetry(ctx, topic, tm.client.Subscribe) {
			return
		}

		tm.actual[topic] = true
	}

	for topic := range tm.actual {
		if desired[topic] {
			continue
		}

		if !tm.applyWithRetry(ctx, topic, tm.client.Unsubscribe) {
			return
		}

		delete(tm.actual, topic)
	}
}

// applyWithRetry runs op(ctx, topic) until it succeeds, the context is
// canceled, or the connection drops. Returns false in the latter two cases,
// meaning the caller should abandon the current reconcile pass.
func (tm *TopicManager) applyWithRetry(ctx context.Context, topic string, op func(context.Context, string) error) bool {
	delay := retryBaseDelay

	for {
		if ctx.Err() != nil || !tm.connected.Load() {
			return false
		}

		err := op(ctx, topic)
		if err == nil {
			return true
		}

		tm.logger.Warn("mqttshadow: subscription op failed, retrying",
			"topic", topic, "error", err, "delay", delay)

		if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
			return false
		}

		delay *= 2
		if delay > retryCapDelay {
			delay = retryCapDelay
		}
	}
}

// onMessage routes an inbound publish to the sync handler as a LocalUpdate
// or LocalDelete sync request (spec.md §4.6).
func (tm *TopicManager) onMessage(topic string, payload []byte) {
	thing, shadowName, op, ok := parseTopic(topic)
	if !ok {
		tm.logger.Warn("mqttshadow: ignoring publish on unrecognized topic", "topic", topic)
		return
	}

	key := shadow.ShadowKey{ThingName: thing, ShadowName: shadowName}
	ctx := context.Background()

	var err error

	switch op {
	case "update":
		err = tm.handler.PushLocalUpdateSyncRequest(ctx, key, payload)
	case "delete":
		deletedVersion := gjson.GetBytes(payload, "version").Int()
		err = tm.handler.PushLocalDeleteSyncRequest(ctx, key, deletedVersion)
	}

	if err != nil {
		tm.logger.Warn("mqttshadow: dropping inbound message", "topic", topic, "key", key.String(), "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
