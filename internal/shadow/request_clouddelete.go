package shadow

import "context"

// IsUpdateNecessary implements spec.md §4.3.4 step 2.
func (r *CloudDeleteRequest) IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error) {
	info, err := rc.Store.GetShadowSyncInformation(ctx, r.KeyV)
	if err != nil {
		return false, err
	}

	if info == nil {
		return false, Classify(TagUnknownShadow, r.KeyV, ErrUnknownShadow)
	}

	return !info.CloudDeleted, nil
}

// Execute implements spec.md §4.3.4.
func (r *CloudDeleteRequest) Execute(ctx context.Context, rc *RequestContext) error {
	return withLock(rc, r.KeyV, func() error {
		info, err := rc.Store.GetShadowSyncInformation(ctx, r.KeyV)
		if err != nil {
			return err
		}

		if info == nil {
			return Classify(TagUnknownShadow, r.KeyV, ErrUnknownShadow)
		}

		if info.CloudDeleted {
			return nil
		}

		if err := rc.Cloud.DeleteThingShadow(ctx, r.KeyV); err != nil {
			return classifyCloudError(r.KeyV, err)
		}

		deletedLocalVersion, ok, err := rc.Store.GetDeletedShadowVersion(ctx, r.KeyV)
		if err != nil {
			return err
		}

		info.CloudVersion++

		if ok {
			info.LocalVersion = deletedLocalVersion
		} else {
			info.LocalVersion++
		}

		info.CloudDeleted = true
		info.LastSyncedDocument = nil
		info.LastSyncTime = rc.Clock.Now().Unix()

		return rc.Store.UpdateSyncInformation(ctx, info)
	})
}
