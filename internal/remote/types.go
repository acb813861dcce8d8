package remote

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MaxBatchSize is the hard limit on documents per BatchUpsert call.
// The backend caps atomic batch commits at 500 writes; 450 leaves margin
// for bookkeeping writes the server may add to the same commit.
const MaxBatchSize = 450

// Priority values accepted on the wire. The store rejects nothing, so
// validation is the client's job — a drifted priority value makes the
// whole document invalid (see TaskDocument.Validate).
const (
	PriorityNone   = "none"
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// TaskDocument is the wire representation of one task in the remote
// document store. The document key is ID; all timestamps are epoch
// milliseconds. CreatedAt is a pointer because it is sent only when the
// record is first created — omitting it on edits preserves the remote
// creation time.
type TaskDocument struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Priority         string  `json:"priority"`
	DueAt            *int64  `json:"dueAt"`
	HasSpecificTime  bool    `json:"hasSpecificTime"`
	SourceTimeZoneID *string `json:"sourceTimeZoneId"`
	IsDone           bool    `json:"isDone"`
	IsPostponed      bool    `json:"isPostponed"`
	IsCancelled      bool    `json:"isCancelled"`
	ParentID         *string `json:"parentId"`
	IsDeleted        bool    `json:"isDeleted"`
	CreatedAt        *int64  `json:"createdAt,omitempty"`
	UpdatedAt        int64   `json:"updatedAt"`
}

// Validate reports whether the document carries the fields a local
// replica requires. Invalid documents are skipped by the sync engine,
// not fatal to the pull.
func (d *TaskDocument) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("missing id")
	}

	if d.UpdatedAt <= 0 {
		return fmt.Errorf("missing or non-positive updatedAt")
	}

	switch d.Priority {
	case "", PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("unknown priority %q", d.Priority)
	}

	return nil
}

// normalize applies NFC normalization to user-entered string fields.
// Devices disagree on Unicode normalization (macOS tends to produce NFD),
// and stable string comparison across replicas requires one form.
func (d *TaskDocument) normalize() {
	d.Title = norm.NFC.String(d.Title)
	d.Description = norm.NFC.String(d.Description)
}
