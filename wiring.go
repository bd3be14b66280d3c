package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/edgeshadow/syncagent/internal/cloudshadow"
	"github.com/edgeshadow/syncagent/internal/config"
	"github.com/edgeshadow/syncagent/internal/ipc"
	"github.com/edgeshadow/syncagent/internal/shadow"
	"github.com/edgeshadow/syncagent/internal/shadowstore"
)

// components bundles the wired-up sync engine shared by the daemon and the
// one-shot CLI operations: both sides apply local writes through the same
// store code and an ipc.Handler built the same way over the same SQLite
// file, so a CLI invocation reads the state the daemon has persisted. Each
// process builds its own lock table, so per-key locking does not span the
// CLI and the daemon.
type components struct {
	store   *shadowstore.Store
	handler *shadow.Handler
	ipc     *ipc.Handler
}

// buildComponents opens the shadow store, resolves the core thing name into
// the config snapshot, and wires the cloud client, rate limiter, and sync
// handler facade. The returned shutdown func stops the strategy and closes
// the database; callers must defer it.
func buildComponents(ctx context.Context, cc *CLIContext, cloudEndpoint, tokenFile, thingName string) (*components, func(), error) {
	logger := cc.Logger

	db, err := shadowstore.Open(ctx, cc.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening shadow store: %w", err)
	}

	store := shadowstore.New(db)

	snap := cc.ConfigHolder.Snapshot()
	if thingName != "" {
		snap = config.WithCoreThingName(snap, thingName)
		cc.ConfigHolder.Update(snap)
	}

	rateLimiter := shadow.NewRateLimiter(
		snap.RateLimits.MaxOutboundSyncUpdatesPerSecond,
		snap.RateLimits.MaxTotalLocalRequestsRate,
		snap.RateLimits.MaxLocalRequestsPerSecondPerThing,
	)

	var cloudClient shadow.CloudClient
	if cloudEndpoint != "" {
		token, tokErr := newCachedTokenSource(tokenFile)
		if tokErr != nil {
			db.Close()
			return nil, nil, fmt.Errorf("loading cloud token: %w", tokErr)
		}

		cloudClient = cloudshadow.NewClient(cloudEndpoint, http.DefaultClient, token, rateLimiter, logger)
	} else {
		cloudClient = noCloudClient{}
	}

	localHandler := shadow.NewStoreLocalHandler(store)

	syncHandler := shadow.NewHandler(shadow.HandlerConfig{
		Store:       store,
		Cloud:       cloudClient,
		Local:       localHandler,
		Clock:       shadow.RealClock(),
		Logger:      logger,
		QueueCap:    shadow.DefaultQueueCapacity,
		Direction:   toShadowDirection(snap.Direction),
		RateLimiter: rateLimiter,
	})

	syncHandler.SetSyncSet(toShadowKeys(snap.Synchronize))

	if err := startStrategy(ctx, syncHandler, snap); err != nil {
		db.Close()
		return nil, nil, err
	}

	ipcHandler := ipc.NewHandler(store, syncHandler, rateLimiter, syncHandler.Locks(),
		func() int { return cc.ConfigHolder.Snapshot().ShadowDocumentSizeLimitBytes }, logger)

	comps := &components{store: store, handler: syncHandler, ipc: ipcHandler}

	shutdown := func() {
		syncHandler.Stop()
		db.Close()
	}

	return comps, shutdown, nil
}

func startStrategy(ctx context.Context, h *shadow.Handler, snap *config.ConfigSnapshot) error {
	switch snap.Strategy.Type {
	case config.StrategyPeriodic:
		delay := time.Duration(snap.Strategy.Delay) * time.Second

		return h.SetStrategy(ctx, func(rc *shadow.RequestContext, q *shadow.Queue) shadow.Strategy {
			return shadow.NewPeriodicSyncStrategy(rc, q, delay)
		})
	default:
		return h.SetStrategy(ctx, func(rc *shadow.RequestContext, q *shadow.Queue) shadow.Strategy {
			return shadow.NewRealTimeSyncStrategy(rc, q, shadow.DefaultRealTimeWorkers)
		})
	}
}

func toShadowDirection(d config.Direction) shadow.Direction {
	switch d {
	case config.DirectionDeviceToCloud:
		return shadow.DirectionDeviceToCloud
	case config.DirectionCloudToDevice:
		return shadow.DirectionCloudToDevice
	default:
		return shadow.DirectionBetweenDeviceAndCloud
	}
}

func toShadowKeys(keys []config.ShadowKey) []shadow.ShadowKey {
	out := make([]shadow.ShadowKey, len(keys))
	for i, k := range keys {
		out[i] = shadow.ShadowKey{ThingName: k.ThingName, ShadowName: k.ShadowName}
	}

	return out
}

// noCloudClient is used when no --cloud-endpoint is configured (e.g. a
// device-to-cloud-only deployment still under initial provisioning): sync
// requests targeting the cloud fail with a clear, classified error instead
// of a nil-pointer panic.
type noCloudClient struct{}

func (noCloudClient) GetThingShadow(context.Context, shadow.ShadowKey) (*shadow.ShadowDocument, error) {
	return nil, fmt.Errorf("no cloud endpoint configured")
}

func (noCloudClient) UpdateThingShadow(context.Context, shadow.ShadowKey, []byte) (*shadow.ShadowDocument, error) {
	return nil, fmt.Errorf("no cloud endpoint configured")
}

func (noCloudClient) DeleteThingShadow(context.Context, shadow.ShadowKey) error {
	return fmt.Errorf("no cloud endpoint configured")
}
