package shadow

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"

	"github.com/tidwall/sjson"
)

// IsUpdateNecessary always returns true for FullSyncRequest: the
// reconciliation algorithm itself determines whether any write is needed,
// and a FullSync is always worth running once it reaches the head of the
// queue (it is the escalation path for Conflict/UnknownShadow, so skipping
// it here would re-lose the information that triggered it).
func (r *FullSyncRequest) IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error) {
	return true, nil
}

// Execute implements spec.md §4.3.5's full reconciliation algorithm.
func (r *FullSyncRequest) Execute(ctx context.Context, rc *RequestContext) error {
	return withLock(rc, r.KeyV, func() error {
		local, err := rc.Store.GetShadowThing(ctx, r.KeyV)
		if err != nil {
			return err
		}

		info, err := rc.Store.GetShadowSyncInformation(ctx, r.KeyV)
		if err != nil {
			return err
		}

		if info == nil {
			info = &SyncInformation{ThingName: r.KeyV.ThingName, ShadowName: r.KeyV.ShadowName}
			if _, err := rc.Store.InsertSyncInfoIfNotExists(ctx, info); err != nil {
				return err
			}
		}

		cloud, err := rc.Cloud.GetThingShadow(ctx, r.KeyV)
		if err != nil {
			return classifyCloudError(r.KeyV, err)
		}

		switch {
		case local == nil && cloud == nil:
			return r.reconcileBothAbsent(ctx, rc, info)
		case local == nil && cloud != nil:
			return r.reconcileLocalAbsent(ctx, rc, info, cloud)
		case local != nil && cloud == nil:
			return r.reconcileCloudAbsent(ctx, rc, info, local)
		default:
			return r.reconcileBothPresent(ctx, rc, info, local, cloud)
		}
	})
}

func (r *FullSyncRequest) reconcileBothAbsent(ctx context.Context, rc *RequestContext, info *SyncInformation) error {
	if info.CloudDeleted {
		return nil
	}

	info.CloudVersion = 0
	info.LocalVersion = 0
	info.LastSyncedDocument = nil
	info.CloudDeleted = false

	return rc.Store.UpdateSyncInformation(ctx, info)
}

func (r *FullSyncRequest) reconcileLocalAbsent(ctx context.Context, rc *RequestContext, info *SyncInformation, cloud *ShadowDocument) error {
	if info.CloudDeleted && cloud.Version == info.CloudVersion+1 {
		if err := rc.Cloud.DeleteThingShadow(ctx, r.KeyV); err != nil {
			return classifyCloudError(r.KeyV, err)
		}

		info.CloudVersion = cloud.Version

		return rc.Store.UpdateSyncInformation(ctx, info)
	}

	result, err := rc.Local.Update(ctx, r.KeyV, cloud.State)
	if err != nil {
		return classifyLocalHandlerError(r.KeyV, err)
	}

	info.LocalVersion = result.Version
	info.CloudVersion = cloud.Version
	info.LastSyncedDocument = result.CurrentDocument
	info.CloudDeleted = false
	info.LastSyncTime = rc.Clock.Now().Unix()

	return rc.Store.UpdateSyncInformation(ctx, info)
}

func (r *FullSyncRequest) reconcileCloudAbsent(ctx context.Context, rc *RequestContext, info *SyncInformation, local *ShadowDocument) error {
	if info.CloudDeleted && local.Version == info.LocalVersion {
		if err := rc.Local.Delete(ctx, r.KeyV); err != nil {
			return classifyLocalHandlerError(r.KeyV, err)
		}

		info.LastSyncedDocument = nil

		return rc.Store.UpdateSyncInformation(ctx, info)
	}

	payload, err := withVersion(local.State, info.CloudVersion)
	if err != nil {
		return Classify(TagSkip, r.KeyV, err)
	}

	updated, err := rc.Cloud.UpdateThingShadow(ctx, r.KeyV, payload)
	if err != nil {
		return classifyCloudError(r.KeyV, err)
	}

	info.CloudVersion++
	if updated != nil {
		info.CloudVersion = updated.Version
	}

	info.LocalVersion = local.Version
	info.LastSyncedDocument = local.State
	info.CloudDeleted = false
	info.LastSyncTime = rc.Clock.Now().Unix()

	return rc.Store.UpdateSyncInformation(ctx, info)
}

func (r *FullSyncRequest) reconcileBothPresent(ctx context.Context, rc *RequestContext, info *SyncInformation, local, cloud *ShadowDocument) error {
	localChanged := !jsonEqual(info.LastSyncedDocument, local.State)
	cloudChanged := !jsonEqual(info.LastSyncedDocument, cloud.State)

	switch {
	case localChanged && !cloudChanged:
		return r.pushLocalToCloud(ctx, rc, info, local, cloud)
	case cloudChanged && !localChanged:
		return r.pushCloudToLocal(ctx, rc, info, local, cloud)
	case localChanged && cloudChanged:
		return r.deepMerge(ctx, rc, info, local, cloud)
	default:
		return nil
	}
}

func (r *FullSyncRequest) pushLocalToCloud(ctx context.Context, rc *RequestContext, info *SyncInformation, local, cloud *ShadowDocument) error {
	merged, err := mergeJSON(cloud.State, local.State)
	if err != nil {
		return Classify(TagSkip, r.KeyV, err)
	}

	payload, err := withVersion(merged, cloud.Version)
	if err != nil {
		return Classify(TagSkip, r.KeyV, err)
	}

	updated, err := rc.Cloud.UpdateThingShadow(ctx, r.KeyV, payload)
	if err != nil {
		return classifyCloudError(r.KeyV, err)
	}

	info.CloudVersion = cloud.Version + 1
	if updated != nil {
		info.CloudVersion = updated.Version
	}

	info.LocalVersion = local.Version
	info.LastSyncedDocument = merged
	info.LastSyncTime = rc.Clock.Now().Unix()

	return rc.Store.UpdateSyncInformation(ctx, info)
}

func (r *FullSyncRequest) pushCloudToLocal(ctx context.Context, rc *RequestContext, info *SyncInformation, local, cloud *ShadowDocument) error {
	result, err := rc.Local.Update(ctx, r.KeyV, cloud.State)
	if err != nil {
		return classifyLocalHandlerError(r.KeyV, err)
	}

	info.LocalVersion = result.Version
	info.CloudVersion = cloud.Version
	info.LastSyncedDocument = result.CurrentDocument
	info.LastSyncTime = rc.Clock.Now().Unix()

	return rc.Store.UpdateSyncInformation(ctx, info)
}

// deepMerge implements spec.md §4.3.5's both-sides-diverged resolution:
// apply cloudDiff then localDiff onto the last-synced base (local wins
// ties), write the merged document to local, then upload it to cloud.
func (r *FullSyncRequest) deepMerge(ctx context.Context, rc *RequestContext, info *SyncInformation, local, cloud *ShadowDocument) error {
	base := info.LastSyncedDocument
	if base == nil {
		base = []byte(`{}`)
	}

	withCloud, err := mergeJSON(base, cloud.State)
	if err != nil {
		return Classify(TagSkip, r.KeyV, err)
	}

	merged, err := mergeJSON(withCloud, local.State)
	if err != nil {
		return Classify(TagSkip, r.KeyV, err)
	}

	localResult, err := rc.Local.Update(ctx, r.KeyV, merged)
	if err != nil {
		return classifyLocalHandlerError(r.KeyV, err)
	}

	payload, err := withVersion(merged, cloud.Version)
	if err != nil {
		return Classify(TagSkip, r.KeyV, err)
	}

	updated, err := rc.Cloud.UpdateThingShadow(ctx, r.KeyV, payload)
	if err != nil {
		return classifyCloudError(r.KeyV, err)
	}

	info.LocalVersion = localResult.Version
	info.CloudVersion = cloud.Version + 1

	if updated != nil {
		info.CloudVersion = updated.Version
	}

	info.LastSyncedDocument = localResult.CurrentDocument
	info.LastSyncTime = rc.Clock.Now().Unix()

	return rc.Store.UpdateSyncInformation(ctx, info)
}

// jsonEqual reports whether two JSON documents are structurally equal,
// treating a nil/empty slice as the empty object. Byte-identical inputs
// short-circuit without parsing.
func jsonEqual(a, b []byte) bool {
	if bytes.Equal(normalizeEmpty(a), normalizeEmpty(b)) {
		return true
	}

	var av, bv any
	if json.Unmarshal(a, &av) != nil {
		av = nil
	}

	if json.Unmarshal(b, &bv) != nil {
		bv = nil
	}

	return reflect.DeepEqual(av, bv)
}

func normalizeEmpty(b []byte) []byte {
	if len(b) == 0 {
		return []byte(`{}`)
	}

	return b
}

func withVersion(payload []byte, version int64) ([]byte, error) {
	return sjson.SetBytes(payload, "version", version)
}
