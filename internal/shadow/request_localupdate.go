package shadow

import (
	"context"
	"encoding/json"

	"github.com/tidwall/sjson"
)

// IsUpdateNecessary implements spec.md §4.3.1 step 2: compares the
// payload's embedded "version" (the cloud version of the producing
// update) to sync info's CloudVersion. If the update is already subsumed
// (its version is at or below CloudVersion) it returns false without
// touching local state or sync info.
func (r *LocalUpdateRequest) IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error) {
	info, err := rc.Store.GetShadowSyncInformation(ctx, r.KeyV)
	if err != nil {
		return false, err
	}

	if info == nil {
		return false, Classify(TagUnknownShadow, r.KeyV, ErrUnknownShadow)
	}

	cloudUpdate, ok := extractVersion(r.Payload)
	if !ok {
		return false, Classify(TagSkip, r.KeyV, errMalformedPayload)
	}

	if cloudUpdate <= info.CloudVersion {
		if cloudUpdate > 0 && info.CloudVersion < cloudUpdate {
			info.CloudVersion = cloudUpdate
			_ = rc.Store.UpdateSyncInformation(ctx, info)
		}

		return false, nil
	}

	return true, nil
}

// Execute implements spec.md §4.3.1.
func (r *LocalUpdateRequest) Execute(ctx context.Context, rc *RequestContext) error {
	return withLock(rc, r.KeyV, func() error {
		info, err := rc.Store.GetShadowSyncInformation(ctx, r.KeyV)
		if err != nil {
			return err
		}

		if info == nil {
			return Classify(TagUnknownShadow, r.KeyV, ErrUnknownShadow)
		}

		cloudUpdate, ok := extractVersion(r.Payload)
		if !ok {
			return Classify(TagSkip, r.KeyV, errMalformedPayload)
		}

		switch {
		case cloudUpdate == info.CloudVersion+1:
			return r.applyLocal(ctx, rc, info, cloudUpdate)
		case cloudUpdate <= info.CloudVersion:
			if info.CloudVersion < cloudUpdate {
				info.CloudVersion = cloudUpdate
				return rc.Store.UpdateSyncInformation(ctx, info)
			}

			return nil
		default:
			return Classify(TagConflict, r.KeyV, errCloudUpdateMissed)
		}
	})
}

func (r *LocalUpdateRequest) applyLocal(ctx context.Context, rc *RequestContext, info *SyncInformation, cloudUpdate int64) error {
	rewritten, err := sjson.SetBytes(r.Payload, "version", info.LocalVersion+1)
	if err != nil {
		return Classify(TagSkip, r.KeyV, err)
	}

	result, err := rc.Local.Update(ctx, r.KeyV, rewritten)
	if err != nil {
		return classifyLocalHandlerError(r.KeyV, err)
	}

	info.LocalVersion = result.Version
	info.CloudVersion = cloudUpdate
	info.LastSyncedDocument = result.CurrentDocument
	info.CloudDeleted = false
	info.LastSyncTime = rc.Clock.Now().Unix()

	return rc.Store.UpdateSyncInformation(ctx, info)
}

var errMalformedPayload = jsonParseError("malformed shadow update payload")
var errCloudUpdateMissed = jsonParseError("cloud update skipped a version; full sync required")

type jsonParseError string

func (e jsonParseError) Error() string { return string(e) }

// extractVersion reads the top-level numeric "version" field from a JSON
// document.
func extractVersion(payload []byte) (int64, bool) {
	var probe struct {
		Version int64 `json:"version"`
	}

	if err := json.Unmarshal(payload, &probe); err != nil {
		return 0, false
	}

	return probe.Version, true
}

func classifyLocalHandlerError(key ShadowKey, err error) error {
	return Classify(TagSkip, key, err)
}
