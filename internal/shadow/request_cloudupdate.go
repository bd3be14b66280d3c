package shadow

import (
	"context"
	"errors"

	"github.com/tidwall/sjson"
)

// IsUpdateNecessary implements spec.md §4.3.3 step 1: a CloudUpdate with
// no local source to push is never necessary.
func (r *CloudUpdateRequest) IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error) {
	local, err := rc.Store.GetShadowThing(ctx, r.KeyV)
	if err != nil {
		return false, err
	}

	return local != nil, nil
}

// Execute implements spec.md §4.3.3.
func (r *CloudUpdateRequest) Execute(ctx context.Context, rc *RequestContext) error {
	return withLock(rc, r.KeyV, func() error {
		local, err := rc.Store.GetShadowThing(ctx, r.KeyV)
		if err != nil {
			return err
		}

		if local == nil {
			rc.Logger.Info("cloud update skipped: no local source", "key", r.KeyV.String())
			return nil
		}

		info, err := rc.Store.GetShadowSyncInformation(ctx, r.KeyV)
		if err != nil {
			return err
		}

		if info == nil {
			return Classify(TagUnknownShadow, r.KeyV, ErrUnknownShadow)
		}

		payload, err := sjson.SetBytes(r.Payload, "version", info.CloudVersion)
		if err != nil {
			return Classify(TagSkip, r.KeyV, err)
		}

		updated, err := rc.Cloud.UpdateThingShadow(ctx, r.KeyV, payload)
		if err != nil {
			return classifyCloudError(r.KeyV, err)
		}

		info.CloudVersion++
		info.LastSyncedDocument = local.State
		info.CloudDeleted = false
		info.CloudUpdateTime = rc.Clock.Now().Unix()
		info.LastSyncTime = info.CloudUpdateTime

		if updated != nil {
			info.CloudVersion = updated.Version
		}

		return rc.Store.UpdateSyncInformation(ctx, info)
	})
}

// classifyCloudError maps spec.md §6's cloud error taxonomy onto spec.md
// §7's sync-request tags, shared by CloudUpdateRequest and
// CloudDeleteRequest (spec.md §4.3.3/§4.3.4 "Error mapping identical").
func classifyCloudError(key ShadowKey, err error) error {
	var ce *CloudError
	if !errors.As(err, &ce) {
		return Classify(TagSkip, key, err)
	}

	switch {
	case ce.StatusCode == 429 || ce.StatusCode == 503 || ce.StatusCode == 500:
		return Classify(TagRetryable, key, err)
	case ce.StatusCode == 409:
		return Classify(TagConflict, key, err)
	default:
		return Classify(TagSkip, key, err)
	}
}
