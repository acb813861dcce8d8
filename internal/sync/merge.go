package sync

// shouldApplyRemote decides whether an incoming remote document overwrites
// the existing local record. Last-writer-wins with a dirty-aware override:
//
//   - Clean local record (synced): a strictly newer remote version wins.
//   - Dirty local record: if the remote store has not moved since the last
//     confirmed sync, the remote copy is stale relative to the pending
//     local edit and must never clobber it. If the remote has moved, it
//     wins when it is at least as fresh as the local edit — remote wins
//     ties, favoring convergence over the device that happens to be
//     running the sync.
//
// Clean records compare with strict >, dirty records with >=. Flipping
// either comparison loses local edits or blocks convergence.
func shouldApplyRemote(local *TaskRecord, remoteUpdatedAt int64) bool {
	if !local.IsDirty() {
		return remoteUpdatedAt > local.UpdatedAt
	}

	remoteChangedSinceLastSync := local.LastSyncedAt == nil || remoteUpdatedAt > *local.LastSyncedAt
	if !remoteChangedSinceLastSync {
		return false
	}

	return remoteUpdatedAt >= local.UpdatedAt
}
