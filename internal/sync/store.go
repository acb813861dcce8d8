package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQL statements prepared once at store construction.
const (
	sqlGetTask = `SELECT id, owner_id, remote_id, title, description, priority,
		parent_id, due_at, has_specific_time, source_time_zone_id,
		is_done, is_postponed, is_cancelled, is_deleted,
		sync_status, created_at, updated_at, last_synced_at
		FROM tasks WHERE id = ?`

	sqlUpsertTask = `INSERT INTO tasks
		(id, owner_id, remote_id, title, description, priority,
		 parent_id, due_at, has_specific_time, source_time_zone_id,
		 is_done, is_postponed, is_cancelled, is_deleted,
		 sync_status, created_at, updated_at, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 owner_id = excluded.owner_id,
		 remote_id = excluded.remote_id,
		 title = excluded.title,
		 description = excluded.description,
		 priority = excluded.priority,
		 parent_id = excluded.parent_id,
		 due_at = excluded.due_at,
		 has_specific_time = excluded.has_specific_time,
		 source_time_zone_id = excluded.source_time_zone_id,
		 is_done = excluded.is_done,
		 is_postponed = excluded.is_postponed,
		 is_cancelled = excluded.is_cancelled,
		 is_deleted = excluded.is_deleted,
		 sync_status = excluded.sync_status,
		 created_at = excluded.created_at,
		 updated_at = excluded.updated_at,
		 last_synced_at = excluded.last_synced_at`

	sqlScanDirty = `SELECT id, owner_id, remote_id, title, description, priority,
		parent_id, due_at, has_specific_time, source_time_zone_id,
		is_done, is_postponed, is_cancelled, is_deleted,
		sync_status, created_at, updated_at, last_synced_at
		FROM tasks WHERE owner_id = ? AND sync_status != 'synced'
		ORDER BY updated_at ASC`

	sqlListByOwner = `SELECT id, owner_id, remote_id, title, description, priority,
		parent_id, due_at, has_specific_time, source_time_zone_id,
		is_done, is_postponed, is_cancelled, is_deleted,
		sync_status, created_at, updated_at, last_synced_at
		FROM tasks WHERE owner_id = ? AND is_deleted = 0
		ORDER BY created_at ASC`

	sqlCountByStatus = `SELECT sync_status, COUNT(*) FROM tasks
		WHERE owner_id = ? GROUP BY sync_status`

	sqlGetCursor = `SELECT last_synced_updated_at FROM sync_cursors WHERE owner_id = ?`

	sqlSetCursor = `INSERT INTO sync_cursors (owner_id, last_synced_updated_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
		 last_synced_updated_at = excluded.last_synced_updated_at,
		 updated_at = excluded.updated_at`
)

// taskStatements groups the prepared statements for the tasks table.
type taskStatements struct {
	get, upsert, scanDirty, listByOwner, countByStatus *sql.Stmt
}

// cursorStatements groups the prepared statements for the sync_cursors table.
type cursorStatements struct {
	get, set *sql.Stmt
}

// Store persists the local task replica and per-owner sync cursors in an
// embedded SQLite database (WAL mode, sole-writer). It implements both
// the RecordStore and CursorStore interfaces consumed by the Engine.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	taskStmts   taskStatements
	cursorStmts cursorStatements

	nowFunc func() time.Time // injectable for deterministic tests
}

// NewStore opens the SQLite database at dbPath, runs migrations, and
// prepares all repeated statements. Use ":memory:" for tests.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"+
			"&_pragma=journal_size_limit(67108864)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sync: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger, nowFunc: time.Now}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sync: preparing statements: %w", err)
	}

	logger.Info("task store ready", slog.String("db_path", dbPath))

	return s, nil
}

// prepareStatements prepares every repeated query once.
func (s *Store) prepareStatements(ctx context.Context) error {
	stmts := []struct {
		dst **sql.Stmt
		sql string
	}{
		{&s.taskStmts.get, sqlGetTask},
		{&s.taskStmts.upsert, sqlUpsertTask},
		{&s.taskStmts.scanDirty, sqlScanDirty},
		{&s.taskStmts.listByOwner, sqlListByOwner},
		{&s.taskStmts.countByStatus, sqlCountByStatus},
		{&s.cursorStmts.get, sqlGetCursor},
		{&s.cursorStmts.set, sqlSetCursor},
	}

	for _, st := range stmts {
		prepared, err := s.db.PrepareContext(ctx, st.sql)
		if err != nil {
			return err
		}

		*st.dst = prepared
	}

	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetByID returns the record with the given id, or ErrRecordNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*TaskRecord, error) {
	rec, err := scanTaskRow(s.taskStmts.get.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}

	if err != nil {
		return nil, &StorageError{Op: "get record", Err: err}
	}

	return rec, nil
}

// UpsertSynced writes a record whose content and status were set
// authoritatively by a merge decision.
func (s *Store) UpsertSynced(ctx context.Context, rec *TaskRecord) error {
	if err := s.execUpsert(ctx, rec); err != nil {
		return &StorageError{Op: "upsert record", Err: err}
	}

	return nil
}

// ScanDirtyByOwner returns every record for the owner whose status is not
// synced, in updatedAt order.
func (s *Store) ScanDirtyByOwner(ctx context.Context, ownerID string) ([]TaskRecord, error) {
	recs, err := s.queryTasks(ctx, s.taskStmts.scanDirty, ownerID)
	if err != nil {
		return nil, &StorageError{Op: "scan dirty records", Err: err}
	}

	return recs, nil
}

// MarkSynced transitions the given ids to synced and sets last_synced_at,
// in a single statement. A crash cannot leave some of the batch synced
// and the rest dirty.
func (s *Store) MarkSynced(ctx context.Context, ids []string, syncedAt int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(
		`UPDATE tasks SET sync_status = 'synced', last_synced_at = ? WHERE id IN (%s)`,
		placeholders,
	)

	args := make([]any, 0, len(ids)+1)
	args = append(args, syncedAt)

	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return &StorageError{Op: "mark synced", Err: err}
	}

	if n, err := res.RowsAffected(); err == nil && n != int64(len(ids)) {
		s.logger.Warn("mark synced affected unexpected row count",
			slog.Int64("affected", n),
			slog.Int("expected", len(ids)),
		)
	}

	return nil
}

// GetCursor returns the owner's pull high-water mark, or 0 if the owner
// has never synced (beginning of time).
func (s *Store) GetCursor(ctx context.Context, ownerID string) (int64, error) {
	var cursor int64

	err := s.cursorStmts.get.QueryRowContext(ctx, ownerID).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, &StorageError{Op: "get cursor", Err: err}
	}

	return cursor, nil
}

// SetCursor persists a new high-water mark for the owner.
func (s *Store) SetCursor(ctx context.Context, ownerID string, cursor int64) error {
	now := s.nowFunc().UnixMilli()

	if _, err := s.cursorStmts.set.ExecContext(ctx, ownerID, cursor, now); err != nil {
		return &StorageError{Op: "set cursor", Err: err}
	}

	return nil
}

// CreateTask inserts a locally-authored task. A missing ID is filled with
// a fresh UUID; RemoteID always mirrors ID. The record starts dirty in
// created status with both timestamps set to now.
func (s *Store) CreateTask(ctx context.Context, rec *TaskRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	rec.RemoteID = rec.ID

	if rec.Priority == "" {
		rec.Priority = "none"
	}

	now := s.nowFunc().UnixMilli()
	rec.SyncStatus = StatusCreated
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.LastSyncedAt = nil

	if err := s.execUpsert(ctx, rec); err != nil {
		return &StorageError{Op: "create task", Err: err}
	}

	return nil
}

// UpdateTask applies a local edit: the mutate callback changes business
// fields, then updatedAt is bumped and the record goes dirty. A record
// that was never pushed stays in created status; anything else becomes
// updated. Returns the stored record.
func (s *Store) UpdateTask(ctx context.Context, id string, mutate func(*TaskRecord)) (*TaskRecord, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	mutate(rec)

	rec.UpdatedAt = s.nowFunc().UnixMilli()
	if rec.SyncStatus != StatusCreated {
		rec.SyncStatus = StatusUpdated
	}

	if err := s.execUpsert(ctx, rec); err != nil {
		return nil, &StorageError{Op: "update task", Err: err}
	}

	return rec, nil
}

// DeleteTask tombstones a task. The row stays in place so the deletion
// propagates to other replicas on the next push.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	rec.IsDeleted = true
	rec.SyncStatus = StatusDeleted
	rec.UpdatedAt = s.nowFunc().UnixMilli()

	if err := s.execUpsert(ctx, rec); err != nil {
		return &StorageError{Op: "delete task", Err: err}
	}

	return nil
}

// ListByOwner returns the owner's live (non-tombstoned) tasks in
// creation order.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]TaskRecord, error) {
	recs, err := s.queryTasks(ctx, s.taskStmts.listByOwner, ownerID)
	if err != nil {
		return nil, &StorageError{Op: "list tasks", Err: err}
	}

	return recs, nil
}

// StatusCounts returns the number of the owner's records per sync status.
func (s *Store) StatusCounts(ctx context.Context, ownerID string) (map[SyncStatus]int, error) {
	rows, err := s.taskStmts.countByStatus.QueryContext(ctx, ownerID)
	if err != nil {
		return nil, &StorageError{Op: "count by status", Err: err}
	}
	defer rows.Close()

	counts := make(map[SyncStatus]int)

	for rows.Next() {
		var (
			status string
			count  int
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, &StorageError{Op: "count by status", Err: err}
		}

		counts[SyncStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "count by status", Err: err}
	}

	return counts, nil
}

// execUpsert runs the shared upsert statement for a record.
func (s *Store) execUpsert(ctx context.Context, rec *TaskRecord) error {
	_, err := s.taskStmts.upsert.ExecContext(ctx,
		rec.ID, rec.OwnerID, rec.RemoteID, rec.Title, rec.Description, rec.Priority,
		rec.ParentID, rec.DueAt, rec.HasSpecificTime, rec.SourceTimeZoneID,
		rec.IsDone, rec.IsPostponed, rec.IsCancelled, rec.IsDeleted,
		string(rec.SyncStatus), rec.CreatedAt, rec.UpdatedAt, rec.LastSyncedAt,
	)

	return err
}

// queryTasks runs a prepared multi-row task query and scans the results.
func (s *Store) queryTasks(ctx context.Context, stmt *sql.Stmt, args ...any) ([]TaskRecord, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []TaskRecord

	for rows.Next() {
		rec, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}

		recs = append(recs, *rec)
	}

	return recs, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTaskRow scans one tasks row into a TaskRecord, converting nullable
// columns to pointers.
func scanTaskRow(row rowScanner) (*TaskRecord, error) {
	var (
		rec          TaskRecord
		parentID     sql.NullString
		dueAt        sql.NullInt64
		timeZoneID   sql.NullString
		lastSyncedAt sql.NullInt64
		status       string
	)

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.RemoteID, &rec.Title, &rec.Description, &rec.Priority,
		&parentID, &dueAt, &rec.HasSpecificTime, &timeZoneID,
		&rec.IsDone, &rec.IsPostponed, &rec.IsCancelled, &rec.IsDeleted,
		&status, &rec.CreatedAt, &rec.UpdatedAt, &lastSyncedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.SyncStatus = SyncStatus(status)

	if parentID.Valid {
		rec.ParentID = &parentID.String
	}

	if dueAt.Valid {
		rec.DueAt = &dueAt.Int64
	}

	if timeZoneID.Valid {
		rec.SourceTimeZoneID = &timeZoneID.String
	}

	if lastSyncedAt.Valid {
		rec.LastSyncedAt = &lastSyncedAt.Int64
	}

	return &rec, nil
}
