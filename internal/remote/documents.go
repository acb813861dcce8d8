package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// QueryPage is one page of a range query. NextPageToken is empty on the
// final page; a non-empty value is passed to the next QueryUpdatedAfter
// call to continue.
type QueryPage struct {
	Documents     []TaskDocument
	NextPageToken string
}

// queryResponse mirrors the store's range-query JSON structure.
type queryResponse struct {
	Documents     []TaskDocument `json:"documents"`
	NextPageToken string         `json:"nextPageToken"`
}

// batchUpsertRequest is the JSON body for a batch upsert call.
type batchUpsertRequest struct {
	Documents []TaskDocument `json:"documents"`
}

// QueryUpdatedAfter fetches one page of documents in the given collection
// with updatedAt strictly greater than sinceExclusive, ordered ascending
// by updatedAt. Pass an empty pageToken for the first page; each call is
// an independent request, so an interrupted iteration restarts cleanly.
func (c *Client) QueryUpdatedAfter(ctx context.Context, binding string, sinceExclusive int64, pageToken string) (*QueryPage, error) {
	path := fmt.Sprintf("/collections/%s/tasks?updatedAfter=%d&orderBy=updatedAt",
		url.PathEscape(binding), sinceExclusive)
	if pageToken != "" {
		path += "&pageToken=" + url.QueryEscape(pageToken)
	}

	c.logger.Debug("querying documents",
		slog.String("binding", binding),
		slog.Int64("since_exclusive", sinceExclusive),
		slog.Bool("first_page", pageToken == ""),
	)

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("remote: decoding query response: %w", err)
	}

	for i := range qr.Documents {
		qr.Documents[i].normalize()
	}

	c.logger.Debug("fetched document page",
		slog.String("binding", binding),
		slog.Int("count", len(qr.Documents)),
		slog.Bool("has_next_page", qr.NextPageToken != ""),
	)

	return &QueryPage{
		Documents:     qr.Documents,
		NextPageToken: qr.NextPageToken,
	}, nil
}

// BatchUpsert writes the given documents to the collection in one atomic
// commit: either every document lands or none do. Upserting a document
// that already has identical content is a no-op on the store side, so a
// retried batch is safe. Batches larger than MaxBatchSize are rejected
// client-side before any network traffic.
func (c *Client) BatchUpsert(ctx context.Context, binding string, docs []TaskDocument) error {
	if len(docs) == 0 {
		return nil
	}

	if len(docs) > MaxBatchSize {
		return fmt.Errorf("%w: %d documents, limit %d", ErrBatchTooLarge, len(docs), MaxBatchSize)
	}

	body, err := json.Marshal(batchUpsertRequest{Documents: docs})
	if err != nil {
		return fmt.Errorf("remote: encoding batch upsert: %w", err)
	}

	path := fmt.Sprintf("/collections/%s/tasks:batchUpsert", url.PathEscape(binding))

	c.logger.Info("upserting document batch",
		slog.String("binding", binding),
		slog.Int("count", len(docs)),
	)

	resp, err := c.Do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}
