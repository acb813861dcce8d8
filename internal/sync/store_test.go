package sync

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level logger that writes to t.Log,
// so all activity appears in CI output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// newTestStore creates a Store backed by a temp directory, registering
// cleanup with t.Cleanup.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStore(dbPath, testLogger(t))
	require.NoError(t, err, "NewStore(%q)", dbPath)

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close(): %v", err)
		}
	})

	return store
}

// fixedClock pins a store's clock to a settable instant.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func TestNewStore_WALMode(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	var journalMode string
	err := store.db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	assert.Equal(t, "wal", journalMode)
}

func TestCreateTask_SetsDirtyState(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	clock := &fixedClock{now: time.UnixMilli(1000)}
	store.nowFunc = clock.Now

	ctx := context.Background()
	rec := &TaskRecord{OwnerID: "alice", Title: "buy milk"}
	require.NoError(t, store.CreateTask(ctx, rec))

	assert.NotEmpty(t, rec.ID, "CreateTask must assign an id")
	assert.Equal(t, rec.ID, rec.RemoteID)

	got, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, got.SyncStatus)
	assert.Equal(t, int64(1000), got.CreatedAt)
	assert.Equal(t, int64(1000), got.UpdatedAt)
	assert.Nil(t, got.LastSyncedAt)
	assert.Equal(t, "none", got.Priority)
}

func TestGetByID_NotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestUpdateTask_BumpsUpdatedAtAndStatus(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	clock := &fixedClock{now: time.UnixMilli(1000)}
	store.nowFunc = clock.Now

	ctx := context.Background()
	rec := &TaskRecord{OwnerID: "alice", Title: "buy milk"}
	require.NoError(t, store.CreateTask(ctx, rec))

	// A synced record goes to updated on edit.
	require.NoError(t, store.MarkSynced(ctx, []string{rec.ID}, 1500))

	clock.now = time.UnixMilli(2000)

	got, err := store.UpdateTask(ctx, rec.ID, func(r *TaskRecord) {
		r.IsDone = true
	})
	require.NoError(t, err)

	assert.Equal(t, StatusUpdated, got.SyncStatus)
	assert.Equal(t, int64(2000), got.UpdatedAt)
	assert.True(t, got.IsDone)
}

func TestUpdateTask_CreatedStaysCreated(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	ctx := context.Background()
	rec := &TaskRecord{OwnerID: "alice", Title: "buy milk"}
	require.NoError(t, store.CreateTask(ctx, rec))

	got, err := store.UpdateTask(ctx, rec.ID, func(r *TaskRecord) {
		r.Title = "buy oat milk"
	})
	require.NoError(t, err)

	// The remote store has never seen this record; pushing it as an
	// update would omit createdAt.
	assert.Equal(t, StatusCreated, got.SyncStatus)
}

func TestDeleteTask_Tombstones(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	ctx := context.Background()
	rec := &TaskRecord{OwnerID: "alice", Title: "buy milk"}
	require.NoError(t, store.CreateTask(ctx, rec))
	require.NoError(t, store.DeleteTask(ctx, rec.ID))

	got, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err, "tombstoned rows must remain readable")

	assert.True(t, got.IsDeleted)
	assert.Equal(t, StatusDeleted, got.SyncStatus)

	live, err := store.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, live, "tombstones are hidden from task listings")
}

func TestScanDirtyByOwner(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	a := &TaskRecord{OwnerID: "alice", Title: "a"}
	b := &TaskRecord{OwnerID: "alice", Title: "b"}
	other := &TaskRecord{OwnerID: "bob", Title: "c"}
	require.NoError(t, store.CreateTask(ctx, a))
	require.NoError(t, store.CreateTask(ctx, b))
	require.NoError(t, store.CreateTask(ctx, other))

	require.NoError(t, store.MarkSynced(ctx, []string{a.ID}, 500))

	dirty, err := store.ScanDirtyByOwner(ctx, "alice")
	require.NoError(t, err)

	require.Len(t, dirty, 1)
	assert.Equal(t, b.ID, dirty[0].ID, "synced and foreign-owner records are excluded")
}

func TestMarkSynced_SetsLastSyncedAt(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	a := &TaskRecord{OwnerID: "alice", Title: "a"}
	b := &TaskRecord{OwnerID: "alice", Title: "b"}
	require.NoError(t, store.CreateTask(ctx, a))
	require.NoError(t, store.CreateTask(ctx, b))

	require.NoError(t, store.MarkSynced(ctx, []string{a.ID, b.ID}, 7777))

	for _, id := range []string{a.ID, b.ID} {
		got, err := store.GetByID(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, StatusSynced, got.SyncStatus)
		require.NotNil(t, got.LastSyncedAt)
		assert.Equal(t, int64(7777), *got.LastSyncedAt)
	}
}

func TestMarkSynced_EmptyIsNoOp(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	require.NoError(t, store.MarkSynced(context.Background(), nil, 1))
}

func TestUpsertSynced_RoundTripsNullableFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	parent := "parent-1"
	due := int64(12345)
	tz := "Europe/Helsinki"
	synced := int64(999)

	rec := &TaskRecord{
		ID:               "task-1",
		OwnerID:          "alice",
		RemoteID:         "task-1",
		Title:            "with extras",
		Priority:         "high",
		ParentID:         &parent,
		DueAt:            &due,
		HasSpecificTime:  true,
		SourceTimeZoneID: &tz,
		SyncStatus:       StatusSynced,
		CreatedAt:        1,
		UpdatedAt:        2,
		LastSyncedAt:     &synced,
	}

	require.NoError(t, store.UpsertSynced(ctx, rec))

	got, err := store.GetByID(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestCursor_DefaultsToZero(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	cursor, err := store.GetCursor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor, "unset cursor means beginning of time")
}

func TestCursor_RoundTripPerOwner(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetCursor(ctx, "alice", 100))
	require.NoError(t, store.SetCursor(ctx, "bob", 200))
	require.NoError(t, store.SetCursor(ctx, "alice", 150))

	alice, err := store.GetCursor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(150), alice)

	bob, err := store.GetCursor(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(200), bob)
}

func TestStatusCounts(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	a := &TaskRecord{OwnerID: "alice", Title: "a"}
	b := &TaskRecord{OwnerID: "alice", Title: "b"}
	require.NoError(t, store.CreateTask(ctx, a))
	require.NoError(t, store.CreateTask(ctx, b))
	require.NoError(t, store.MarkSynced(ctx, []string{a.ID}, 1))
	require.NoError(t, store.DeleteTask(ctx, b.ID))

	counts, err := store.StatusCounts(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, counts[StatusSynced])
	assert.Equal(t, 1, counts[StatusDeleted])
	assert.Equal(t, 0, counts[StatusCreated])
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := testLogger(t)

	store, err := NewStore(dbPath, logger)
	require.NoError(t, err)

	ctx := context.Background()
	rec := &TaskRecord{OwnerID: "alice", Title: "durable"}
	require.NoError(t, store.CreateTask(ctx, rec))
	require.NoError(t, store.SetCursor(ctx, "alice", 42))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath, logger)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Title)

	cursor, err := reopened.GetCursor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor)
}

func TestStorageError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := sql.ErrConnDone
	err := &StorageError{Op: "get record", Err: cause}

	assert.True(t, errors.Is(err, sql.ErrConnDone))
}
