package shadow

import "context"

// IsUpdateNecessary reports whether any constituent still has work to do.
func (r *MergedFullSyncRequest) IsUpdateNecessary(ctx context.Context, rc *RequestContext) (bool, error) {
	live, err := r.liveConstituents(ctx, rc)
	if err != nil {
		return false, err
	}

	return len(live) > 0, nil
}

// Execute implements spec.md §4.3.6: re-check each constituent's necessity
// (a merged batch may have been overtaken by its own effects running out of
// order elsewhere), drop the ones that no longer apply, then either reduce
// the survivors to one same-sided request or escalate to a full
// reconciliation.
//
// Open question (spec.md §9): if a surviving constituent's necessity check
// itself reports TagConflict, that is treated as "escalate to FullSync"
// rather than propagating the conflict, since the merged batch's job is
// precisely to resolve disagreement between interleaved requests.
func (r *MergedFullSyncRequest) Execute(ctx context.Context, rc *RequestContext) error {
	live, err := r.liveConstituents(ctx, rc)
	if err != nil {
		if TagOf(err) == TagConflict {
			return (&FullSyncRequest{KeyV: r.KeyV}).Execute(ctx, rc)
		}

		return err
	}

	if len(live) == 0 {
		return nil
	}

	if sameSided(live) {
		reduced := live[0]
		for _, next := range live[1:] {
			reduced = Merge(reduced, next)
		}

		if reduced.Kind() == KindMergedFullSync || reduced.Kind() == KindFullSync {
			return (&FullSyncRequest{KeyV: r.KeyV}).Execute(ctx, rc)
		}

		return reduced.Execute(ctx, rc)
	}

	return (&FullSyncRequest{KeyV: r.KeyV}).Execute(ctx, rc)
}

// liveConstituents runs IsUpdateNecessary on each constituent in order,
// keeping only the ones still necessary. A TagConflict or TagUnknownShadow
// from any constituent's check aborts the whole batch with that error, to
// be handled by the caller (Execute escalates conflicts to FullSync).
func (r *MergedFullSyncRequest) liveConstituents(ctx context.Context, rc *RequestContext) ([]SyncRequest, error) {
	live := make([]SyncRequest, 0, len(r.Constituents))

	for _, c := range r.Constituents {
		necessary, err := c.IsUpdateNecessary(ctx, rc)
		if err != nil {
			return nil, err
		}

		if necessary {
			live = append(live, c)
		}
	}

	return live, nil
}

// sameSided reports whether every request in reqs originates from the same
// side (all local-sided or all cloud-sided), the precondition for reducing
// a MergedFullSyncRequest to a single concrete request instead of escalating
// to a full reconciliation (spec.md §4.3.6).
func sameSided(reqs []SyncRequest) bool {
	allLocal, allCloud := true, true

	for _, req := range reqs {
		if !req.Kind().isLocalSided() {
			allLocal = false
		}

		if !req.Kind().isCloudSided() {
			allCloud = false
		}
	}

	return allLocal || allCloud
}
