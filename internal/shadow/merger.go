package shadow

import "encoding/json"

// Merge coalesces two pending requests for the same key into one, per the
// variant cross-product table in spec.md §4.2. existing is the request
// currently queued; incoming is the newly arrived request. Merge never
// mutates either argument; it returns a (possibly new) SyncRequest.
func Merge(existing, incoming SyncRequest) SyncRequest {
	if isOverwrite(incoming.Kind()) || isOverwrite(existing.Kind()) {
		return mergeOverwrite(existing, incoming)
	}

	if existing.Kind() == KindFullSync || incoming.Kind() == KindFullSync {
		return &FullSyncRequest{KeyV: existing.Key()}
	}

	if existing.Kind() == KindMergedFullSync {
		return mergeIntoFlat(existing.(*MergedFullSyncRequest), incoming)
	}

	if incoming.Kind() == KindMergedFullSync {
		return mergeIntoFlat(incoming.(*MergedFullSyncRequest), existing)
	}

	switch existing.Kind() {
	case KindLocalUpdate:
		return mergeFromLocalUpdate(existing.(*LocalUpdateRequest), incoming)
	case KindLocalDelete:
		return mergeFromLocalDelete(existing.(*LocalDeleteRequest), incoming)
	case KindCloudUpdate:
		return mergeFromCloudUpdate(existing.(*CloudUpdateRequest), incoming)
	case KindCloudDelete:
		return mergeFromCloudDelete(existing.(*CloudDeleteRequest), incoming)
	default:
		return &FullSyncRequest{KeyV: existing.Key()}
	}
}

func isOverwrite(k RequestKind) bool {
	return k == KindOverwriteCloud || k == KindOverwriteLocal
}

// mergeOverwrite implements the Overwrite* row/column: same-side overwrite
// collapses to itself; a differently-sided overwrite promotes to FullSync,
// since each Overwrite intends to clobber a different side wholesale. An
// overwrite crossing a non-overwrite request keeps the overwrite.
func mergeOverwrite(existing, incoming SyncRequest) SyncRequest {
	if existing.Kind() == incoming.Kind() && isOverwrite(existing.Kind()) {
		return existing
	}

	if isOverwrite(existing.Kind()) && isOverwrite(incoming.Kind()) {
		return &FullSyncRequest{KeyV: existing.Key()}
	}

	// One side is an overwrite, the other isn't: keep the overwrite intent,
	// since it was requested most recently or supersedes partial updates.
	if isOverwrite(incoming.Kind()) {
		return incoming
	}

	return existing
}

// mergeIntoFlat appends other to a MergedFullSyncRequest's constituent
// list, or — if other is itself a MergedFullSyncRequest — concatenates the
// two flat lists. FullSync/Overwrite callers never reach here (handled
// earlier in Merge).
func mergeIntoFlat(flat *MergedFullSyncRequest, other SyncRequest) SyncRequest {
	constituents := make([]SyncRequest, 0, len(flat.Constituents)+1)
	constituents = append(constituents, flat.Constituents...)

	if o, ok := other.(*MergedFullSyncRequest); ok {
		constituents = append(constituents, o.Constituents...)
	} else {
		constituents = append(constituents, other)
	}

	return &MergedFullSyncRequest{KeyV: flat.Key(), Constituents: constituents}
}

func mergeFromLocalUpdate(existing *LocalUpdateRequest, incoming SyncRequest) SyncRequest {
	switch v := incoming.(type) {
	case *LocalUpdateRequest:
		merged, err := mergeJSON(existing.Payload, v.Payload)
		if err != nil {
			return &FullSyncRequest{KeyV: existing.Key()}
		}

		return &LocalUpdateRequest{KeyV: existing.Key(), Payload: merged}
	case *LocalDeleteRequest:
		return v
	default:
		return &MergedFullSyncRequest{KeyV: existing.Key(), Constituents: []SyncRequest{existing, incoming}}
	}
}

func mergeFromLocalDelete(existing *LocalDeleteRequest, incoming SyncRequest) SyncRequest {
	switch incoming.(type) {
	case *LocalUpdateRequest, *LocalDeleteRequest:
		return existing
	case *CloudDeleteRequest:
		return incoming
	default: // CloudUpdateRequest
		return &MergedFullSyncRequest{KeyV: existing.Key(), Constituents: []SyncRequest{existing, incoming}}
	}
}

func mergeFromCloudUpdate(existing *CloudUpdateRequest, incoming SyncRequest) SyncRequest {
	switch v := incoming.(type) {
	case *CloudUpdateRequest:
		merged, err := mergeJSON(existing.Payload, v.Payload)
		if err != nil {
			return &FullSyncRequest{KeyV: existing.Key()}
		}

		return &CloudUpdateRequest{KeyV: existing.Key(), Payload: merged}
	case *CloudDeleteRequest:
		return v
	default: // LocalUpdateRequest, LocalDeleteRequest
		return &MergedFullSyncRequest{KeyV: existing.Key(), Constituents: []SyncRequest{existing, incoming}}
	}
}

func mergeFromCloudDelete(existing *CloudDeleteRequest, incoming SyncRequest) SyncRequest {
	switch incoming.(type) {
	case *CloudUpdateRequest, *CloudDeleteRequest:
		return existing
	case *LocalDeleteRequest:
		return existing
	default: // LocalUpdateRequest
		return &MergedFullSyncRequest{KeyV: existing.Key(), Constituents: []SyncRequest{existing, incoming}}
	}
}

// mergeJSON performs a recursive object merge of two JSON documents with
// right-hand-side ("incoming") precedence, treating a JSON null in
// incoming as "delete this key" (spec.md §4.2). When both documents carry
// a numeric top-level "version" field, the older-versioned document is
// used as the base and the newer overlays it, so the newest writer wins on
// overlapping fields while fields the older writer set (and the newer
// omitted) survive.
func mergeJSON(a, b []byte) ([]byte, error) {
	var av, bv map[string]any

	if err := json.Unmarshal(a, &av); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(b, &bv); err != nil {
		return nil, err
	}

	base, overlay := orderByVersion(av, bv)
	merged := mergeObjects(base, overlay)

	return json.Marshal(merged)
}

// orderByVersion returns (base, overlay) such that overlay is the document
// with the higher "version" field (or b, if neither/both are equal/absent
// — the newest arrival wins ties, matching "incoming" precedence).
func orderByVersion(a, b map[string]any) (base, overlay map[string]any) {
	av, aok := numericVersion(a)
	bv, bok := numericVersion(b)

	if aok && bok && av > bv {
		return b, a
	}

	return a, b
}

func numericVersion(m map[string]any) (float64, bool) {
	v, ok := m["version"]
	if !ok {
		return 0, false
	}

	f, ok := v.(float64)

	return f, ok
}

// mergeObjects recursively merges overlay into base. A nil value in
// overlay deletes the key from the result; a nested object merges
// recursively; any other value (including arrays) replaces the base value
// wholesale.
func mergeObjects(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}

	for k, v := range overlay {
		if v == nil {
			delete(out, k)
			continue
		}

		if ov, ok := v.(map[string]any); ok {
			if bv, ok := out[k].(map[string]any); ok {
				out[k] = mergeObjects(bv, ov)
				continue
			}
		}

		out[k] = v
	}

	return out
}
