package shadow

import "context"

// IsUpdateNecessary implements spec.md §4.3.2: the delete is already
// reflected if sync info already records the shadow as cloud-deleted at or
// past the hinted version.
func (r *LocalDeleteRequest) IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error) {
	info, err := rc.Store.GetShadowSyncInformation(ctx, r.KeyV)
	if err != nil {
		return false, err
	}

	if info == nil {
		return false, Classify(TagUnknownShadow, r.KeyV, ErrUnknownShadow)
	}

	if info.CloudDeleted && info.CloudVersion >= r.DeletedCloudVersion {
		return false, nil
	}

	return true, nil
}

// Execute implements spec.md §4.3.2.
func (r *LocalDeleteRequest) Execute(ctx context.Context, rc *RequestContext) error {
	return withLock(rc, r.KeyV, func() error {
		info, err := rc.Store.GetShadowSyncInformation(ctx, r.KeyV)
		if err != nil {
			return err
		}

		if info == nil {
			return Classify(TagUnknownShadow, r.KeyV, ErrUnknownShadow)
		}

		if err := rc.Local.Delete(ctx, r.KeyV); err != nil {
			return classifyLocalHandlerError(r.KeyV, err)
		}

		deletedLocalVersion, ok, err := rc.Store.GetDeletedShadowVersion(ctx, r.KeyV)
		if err != nil {
			return err
		}

		if !ok {
			deletedLocalVersion = info.LocalVersion + 1
		}

		info.LocalVersion = deletedLocalVersion
		info.CloudVersion = r.DeletedCloudVersion
		info.CloudDeleted = true
		info.LastSyncedDocument = nil
		info.LastSyncTime = rc.Clock.Now().Unix()

		return rc.Store.UpdateSyncInformation(ctx, info)
	})
}
