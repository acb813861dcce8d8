package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/tasksync-go/internal/remote"
)

// RecordStore is the local replica contract the engine depends on.
// Satisfied by *Store. Local CRUD (which sets dirty statuses and bumps
// updatedAt) lives on the concrete store; the engine never edits tasks.
type RecordStore interface {
	GetByID(ctx context.Context, id string) (*TaskRecord, error)
	UpsertSynced(ctx context.Context, rec *TaskRecord) error
	ScanDirtyByOwner(ctx context.Context, ownerID string) ([]TaskRecord, error)
	MarkSynced(ctx context.Context, ids []string, syncedAt int64) error
}

// CursorStore persists the per-owner pull high-water mark. Satisfied by *Store.
type CursorStore interface {
	GetCursor(ctx context.Context, ownerID string) (int64, error)
	SetCursor(ctx context.Context, ownerID string, cursor int64) error
}

// RemoteStore is the networked document store contract. Satisfied by
// *remote.Client. Queries are paged and restartable; upserts are atomic
// per call and bounded by remote.MaxBatchSize.
type RemoteStore interface {
	QueryUpdatedAfter(ctx context.Context, binding string, sinceExclusive int64, pageToken string) (*remote.QueryPage, error)
	BatchUpsert(ctx context.Context, binding string, docs []remote.TaskDocument) error
}

// BindingResolver maps a local owner id to its remote collection binding.
type BindingResolver interface {
	RemoteBinding(ownerID string) (string, error)
}

// BindingMap is a BindingResolver backed by a static map, used by the CLI
// (config-declared accounts) and by tests.
type BindingMap map[string]string

func (m BindingMap) RemoteBinding(ownerID string) (string, error) {
	binding, ok := m[ownerID]
	if !ok || binding == "" {
		return "", fmt.Errorf("%w: %s", ErrUnboundUser, ownerID)
	}

	return binding, nil
}

// EngineConfig holds the dependencies and tunables for NewEngine.
type EngineConfig struct {
	Records  RecordStore
	Cursors  CursorStore
	Remote   RemoteStore
	Bindings BindingResolver
	Logger   *slog.Logger

	// SkewWindow tolerates clock drift between devices; zero means
	// DefaultSkewWindow. BatchSize caps push chunks; zero means
	// remote.MaxBatchSize.
	SkewWindow time.Duration
	BatchSize  int
}

// Report summarizes one sync pass for logging and status display.
type Report struct {
	Pulled  int // remote documents applied locally
	Skipped int // malformed remote documents skipped
	Pushed  int // dirty records confirmed by the remote store
}

// Engine orchestrates one full synchronization pass per owner: pull
// remote changes since the skew-adjusted cursor, merge record-by-record,
// advance the cursor, then push dirty records in bounded batches.
//
// Concurrent Sync calls for the same owner are not safe; serialize them
// through a Dispatcher. Different owners are fully independent.
type Engine struct {
	records  RecordStore
	cursors  CursorStore
	remote   RemoteStore
	bindings BindingResolver
	logger   *slog.Logger

	skewWindow time.Duration
	batchSize  int
	nowFunc    func() time.Time // injectable for deterministic tests
}

// NewEngine creates an Engine with explicit dependencies. Every field of
// cfg except the tunables is required.
func NewEngine(cfg *EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	skew := cfg.SkewWindow
	if skew <= 0 {
		skew = DefaultSkewWindow
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > remote.MaxBatchSize {
		batchSize = remote.MaxBatchSize
	}

	return &Engine{
		records:    cfg.Records,
		cursors:    cfg.Cursors,
		remote:     cfg.Remote,
		bindings:   cfg.Bindings,
		logger:     logger,
		skewWindow: skew,
		batchSize:  batchSize,
		nowFunc:    time.Now,
	}
}

// Sync runs one full pass for the owner: pull, then push, strictly in
// that order and never interleaved. Any failure leaves local state
// consistent and re-syncable: the cursor only advances after a fully
// enumerated pull, and pushed-but-unconfirmed records stay dirty.
func (e *Engine) Sync(ctx context.Context, ownerID string) (*Report, error) {
	binding, err := e.bindings.RemoteBinding(ownerID)
	if err != nil {
		return nil, err
	}

	started := e.nowFunc()

	e.logger.Info("sync pass starting",
		slog.String("owner_id", ownerID),
		slog.String("binding", binding),
	)

	report := &Report{}

	if err := e.pull(ctx, ownerID, binding, report); err != nil {
		return nil, err
	}

	if err := e.push(ctx, ownerID, binding, report); err != nil {
		return nil, err
	}

	e.logger.Info("sync pass finished",
		slog.String("owner_id", ownerID),
		slog.Int("pulled", report.Pulled),
		slog.Int("skipped", report.Skipped),
		slog.Int("pushed", report.Pushed),
		slog.Duration("duration", e.nowFunc().Sub(started)),
	)

	return report, nil
}

// pull fetches every remote document newer than the skew-adjusted cursor
// and merges each into the local replica. The cursor advances past every
// inspected document — not only applied ones — or the same document would
// be re-fetched forever. It is persisted only after the query is
// exhausted, so a failed pull retries the same range.
func (e *Engine) pull(ctx context.Context, ownerID, binding string, report *Report) error {
	cursor, err := e.cursors.GetCursor(ctx, ownerID)
	if err != nil {
		return err
	}

	safeCursor := cursor - e.skewWindow.Milliseconds()
	if safeCursor < 0 {
		safeCursor = 0
	}

	e.logger.Debug("pull starting",
		slog.String("owner_id", ownerID),
		slog.Int64("cursor", cursor),
		slog.Int64("safe_cursor", safeCursor),
	)

	var (
		maxRemoteUpdatedAt int64
		pageToken          string
	)

	for {
		page, err := e.remote.QueryUpdatedAfter(ctx, binding, safeCursor, pageToken)
		if err != nil {
			return &NetworkError{Op: "query updated documents", Err: err}
		}

		for i := range page.Documents {
			doc := &page.Documents[i]

			if doc.UpdatedAt > maxRemoteUpdatedAt {
				maxRemoteUpdatedAt = doc.UpdatedAt
			}

			if err := doc.Validate(); err != nil {
				// Lenient skip: a malformed document must not fail the
				// whole pull, but it is surfaced in the report rather
				// than dropped silently.
				e.logger.Warn("skipping malformed remote document",
					slog.String("doc_id", doc.ID),
					slog.String("reason", err.Error()),
				)

				report.Skipped++

				continue
			}

			applied, err := e.mergeDocument(ctx, ownerID, doc)
			if err != nil {
				return err
			}

			if applied {
				report.Pulled++
			}
		}

		if page.NextPageToken == "" {
			break
		}

		pageToken = page.NextPageToken
	}

	// The cursor never moves backward, even when the skew window
	// re-surfaced only already-seen documents.
	if maxRemoteUpdatedAt > cursor {
		if err := e.cursors.SetCursor(ctx, ownerID, maxRemoteUpdatedAt); err != nil {
			return err
		}

		e.logger.Debug("cursor advanced",
			slog.String("owner_id", ownerID),
			slog.Int64("cursor", maxRemoteUpdatedAt),
		)
	}

	return nil
}

// mergeDocument reconciles one remote document against the local record
// with the same id, returning whether the remote version was applied.
func (e *Engine) mergeDocument(ctx context.Context, ownerID string, doc *remote.TaskDocument) (bool, error) {
	local, err := e.records.GetByID(ctx, doc.ID)

	switch {
	case errors.Is(err, ErrRecordNotFound):
		if doc.IsDeleted {
			// Never materialize a record this device never knew about
			// only to mark it deleted.
			e.logger.Debug("discarding tombstone for unknown record",
				slog.String("doc_id", doc.ID),
			)

			return false, nil
		}

		if err := e.records.UpsertSynced(ctx, recordFromDocument(ownerID, doc)); err != nil {
			return false, err
		}

		return true, nil

	case err != nil:
		return false, err
	}

	if !shouldApplyRemote(local, doc.UpdatedAt) {
		// The local version stands; if it is dirty, the push phase will
		// offer it to the remote store later.
		return false, nil
	}

	local.applyDocument(doc)

	if err := e.records.UpsertSynced(ctx, local); err != nil {
		return false, err
	}

	return true, nil
}
