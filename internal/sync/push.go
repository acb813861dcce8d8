package sync

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/tasksync-go/internal/remote"
)

// push offers every dirty record to the remote store in chunks no larger
// than the batch limit. All records in one pass share a single captured
// timestamp as their remote updatedAt. Each chunk commits atomically on
// the remote side and is then marked synced locally in one statement;
// a failed chunk aborts the rest. Chunks already committed stay synced —
// push is deliberately non-atomic across chunks, trading all-or-nothing
// semantics for forward progress, since the next pass simply re-offers
// whatever is still dirty.
func (e *Engine) push(ctx context.Context, ownerID, binding string, report *Report) error {
	dirty, err := e.records.ScanDirtyByOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	if len(dirty) == 0 {
		e.logger.Debug("push skipped, nothing dirty", slog.String("owner_id", ownerID))
		return nil
	}

	now := e.nowFunc().UnixMilli()

	e.logger.Debug("push starting",
		slog.String("owner_id", ownerID),
		slog.Int("dirty", len(dirty)),
		slog.Int64("push_timestamp", now),
	)

	for start := 0; start < len(dirty); start += e.batchSize {
		end := start + e.batchSize
		if end > len(dirty) {
			end = len(dirty)
		}

		chunk := dirty[start:end]

		if err := e.pushChunk(ctx, binding, chunk, now); err != nil {
			if start > 0 {
				return &PartialPushError{
					Pushed:    start,
					Remaining: len(dirty) - start,
					Err:       err,
				}
			}

			return err
		}

		report.Pushed += len(chunk)
	}

	return nil
}

// pushChunk uploads one chunk and, on success, marks exactly its ids
// synced with the shared push timestamp.
func (e *Engine) pushChunk(ctx context.Context, binding string, chunk []TaskRecord, now int64) error {
	docs := make([]remote.TaskDocument, 0, len(chunk))
	ids := make([]string, 0, len(chunk))

	for i := range chunk {
		docs = append(docs, documentFromRecord(&chunk[i], now))
		ids = append(ids, chunk[i].ID)
	}

	if err := e.remote.BatchUpsert(ctx, binding, docs); err != nil {
		return &NetworkError{Op: "batch upsert", Err: err}
	}

	return e.records.MarkSynced(ctx, ids, now)
}
