// Package sync implements the offline-first synchronization engine for
// tasksync-go: cursor-based incremental pull from the remote document
// store, dirty-record push in bounded batches, and last-writer-wins
// conflict resolution with clock-skew tolerance.
package sync

import (
	"time"

	"github.com/tonimelisma/tasksync-go/internal/remote"
)

// SyncStatus tracks a record's relationship to the remote store,
// as stored in the sync_status column.
type SyncStatus string

// Sync statuses. Created, Updated, and Deleted are collectively "dirty":
// the local replica holds a change the remote store has not acknowledged.
const (
	StatusCreated SyncStatus = "created"
	StatusUpdated SyncStatus = "updated"
	StatusDeleted SyncStatus = "deleted"
	StatusSynced  SyncStatus = "synced"
)

// IsDirty reports whether the status represents an unacknowledged local change.
func (s SyncStatus) IsDirty() bool {
	return s != StatusSynced
}

// DefaultSkewWindow is subtracted from the cursor before querying the
// remote store, tolerating clock disagreement between the device that
// wrote a document and the device now reading it. Without it, a remote
// write whose timestamp is nominally before the cursor would be missed
// forever.
const DefaultSkewWindow = 2 * time.Minute

// TaskRecord is the unit of synchronization: one task as stored in the
// local replica. All timestamps are epoch milliseconds, matching the
// wire format. Nullable fields are pointers; nil means never-set.
type TaskRecord struct {
	// Identity. ID is globally unique and stable across replicas, and
	// doubles as the remote document key. RemoteID equals ID once bound.
	ID       string
	OwnerID  string
	RemoteID string

	// Business fields.
	Title            string
	Description      string
	Priority         string
	ParentID         *string
	DueAt            *int64
	HasSpecificTime  bool
	SourceTimeZoneID *string
	IsDone           bool
	IsPostponed      bool
	IsCancelled      bool

	// IsDeleted is a tombstone: deletion is logical so it can propagate
	// to other replicas. The engine never removes rows.
	IsDeleted bool

	SyncStatus SyncStatus

	CreatedAt int64
	UpdatedAt int64

	// LastSyncedAt is the remote updatedAt value at the moment this
	// record was last confirmed synchronized; nil if never synchronized.
	LastSyncedAt *int64
}

// IsDirty reports whether the record holds an unacknowledged local change.
func (r *TaskRecord) IsDirty() bool {
	return r.SyncStatus.IsDirty()
}

// applyDocument overwrites the record's business fields and sync metadata
// from an accepted remote document. The caller has already decided the
// remote version wins.
func (r *TaskRecord) applyDocument(doc *remote.TaskDocument) {
	r.RemoteID = doc.ID
	r.Title = doc.Title
	r.Description = doc.Description
	r.Priority = doc.Priority
	r.ParentID = doc.ParentID
	r.DueAt = doc.DueAt
	r.HasSpecificTime = doc.HasSpecificTime
	r.SourceTimeZoneID = doc.SourceTimeZoneID
	r.IsDone = doc.IsDone
	r.IsPostponed = doc.IsPostponed
	r.IsCancelled = doc.IsCancelled
	r.IsDeleted = doc.IsDeleted

	r.UpdatedAt = doc.UpdatedAt
	r.SyncStatus = StatusSynced
	syncedAt := doc.UpdatedAt
	r.LastSyncedAt = &syncedAt
}

// recordFromDocument materializes a local record from a first-seen remote
// document. The record starts life synchronized.
func recordFromDocument(ownerID string, doc *remote.TaskDocument) *TaskRecord {
	rec := &TaskRecord{
		ID:      doc.ID,
		OwnerID: ownerID,
	}
	rec.applyDocument(doc)

	if doc.CreatedAt != nil {
		rec.CreatedAt = *doc.CreatedAt
	} else {
		rec.CreatedAt = doc.UpdatedAt
	}

	return rec
}

// documentFromRecord builds the wire document for one dirty record being
// pushed. updatedAt is the single timestamp captured for the whole push
// pass. createdAt is carried only for records the remote store has never
// seen, so an edit never overwrites the original creation time.
func documentFromRecord(rec *TaskRecord, updatedAt int64) remote.TaskDocument {
	doc := remote.TaskDocument{
		ID:               rec.ID,
		Title:            rec.Title,
		Description:      rec.Description,
		Priority:         rec.Priority,
		DueAt:            rec.DueAt,
		HasSpecificTime:  rec.HasSpecificTime,
		SourceTimeZoneID: rec.SourceTimeZoneID,
		IsDone:           rec.IsDone,
		IsPostponed:      rec.IsPostponed,
		IsCancelled:      rec.IsCancelled,
		ParentID:         rec.ParentID,
		IsDeleted:        rec.IsDeleted,
		UpdatedAt:        updatedAt,
	}

	if rec.SyncStatus == StatusCreated {
		createdAt := rec.CreatedAt
		doc.CreatedAt = &createdAt
	}

	return doc
}
