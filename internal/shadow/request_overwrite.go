package shadow

import "context"

// IsUpdateNecessary always returns true: an overwrite is an explicit,
// user-triggered command (spec.md §4.3.7) and runs unconditionally rather
// than being skipped by a staleness check.
func (r *OverwriteCloudRequest) IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error) {
	return true, nil
}

// Execute force-pushes local state to the cloud, deleting the cloud shadow
// if local is absent (spec.md §4.3.7).
func (r *OverwriteCloudRequest) Execute(ctx context.Context, rc *RequestContext) error {
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

		if local == nil {
			if info.CloudDeleted {
				return nil
			}

			if err := rc.Cloud.DeleteThingShadow(ctx, r.KeyV); err != nil {
				return classifyCloudError(r.KeyV, err)
			}

			info.CloudVersion++
			info.CloudDeleted = true
			info.LastSyncedDocument = nil
			info.LastSyncTime = rc.Clock.Now().Unix()

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
	})
}

// IsUpdateNecessary always returns true; see OverwriteCloudRequest.
func (r *OverwriteLocalRequest) IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error) {
	return true, nil
}

// Execute force-pushes cloud state to local, deleting the local shadow if
// cloud is absent (spec.md §4.3.7).
func (r *OverwriteLocalRequest) Execute(ctx context.Context, rc *RequestContext) error {
	return withLock(rc, r.KeyV, func() error {
		cloud, err := rc.Cloud.GetThingShadow(ctx, r.KeyV)
		if err != nil {
			return classifyCloudError(r.KeyV, err)
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

		if cloud == nil {
			if err := rc.Local.Delete(ctx, r.KeyV); err != nil {
				return classifyLocalHandlerError(r.KeyV, err)
			}

			info.CloudDeleted = true
			info.LastSyncedDocument = nil
			info.LastSyncTime = rc.Clock.Now().Unix()

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
	})
}
