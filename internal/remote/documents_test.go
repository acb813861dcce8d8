package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryUpdatedAfter_BuildsQuery(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(queryResponse{}) //nolint:errcheck
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)

	_, err := client.QueryUpdatedAfter(context.Background(), "col-alice", 123456, "")
	require.NoError(t, err)

	assert.Equal(t, "/collections/col-alice/tasks", gotPath)
	assert.Contains(t, gotQuery, "updatedAfter=123456")
	assert.Contains(t, gotQuery, "orderBy=updatedAt")
	assert.NotContains(t, gotQuery, "pageToken")
}

func TestQueryUpdatedAfter_PassesPageToken(t *testing.T) {
	t.Parallel()

	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("pageToken")
		json.NewEncoder(w).Encode(queryResponse{NextPageToken: "page-3"}) //nolint:errcheck
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)

	page, err := client.QueryUpdatedAfter(context.Background(), "col-alice", 0, "page-2")
	require.NoError(t, err)

	assert.Equal(t, "page-2", gotToken)
	assert.Equal(t, "page-3", page.NextPageToken)
}

func TestQueryUpdatedAfter_NormalizesText(t *testing.T) {
	t.Parallel()

	// "é" as 'e' + combining acute accent (NFD); NFC folds it to one rune.
	decomposed := "café"
	composed := "café"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(queryResponse{Documents: []TaskDocument{ //nolint:errcheck
			{ID: "a", Title: decomposed, Priority: PriorityNone, UpdatedAt: 100},
		}})
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)

	page, err := client.QueryUpdatedAfter(context.Background(), "col-alice", 0, "")
	require.NoError(t, err)

	require.Len(t, page.Documents, 1)
	assert.Equal(t, composed, page.Documents[0].Title)
}

func TestBatchUpsert_PostsDocuments(t *testing.T) {
	t.Parallel()

	var gotPath string

	var gotBody batchUpsertRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)

	docs := []TaskDocument{
		{ID: "a", Title: "one", Priority: PriorityLow, UpdatedAt: 100},
		{ID: "b", Title: "two", Priority: PriorityHigh, UpdatedAt: 200},
	}

	require.NoError(t, client.BatchUpsert(context.Background(), "col-alice", docs))

	assert.Equal(t, "/collections/col-alice/tasks:batchUpsert", gotPath)
	require.Len(t, gotBody.Documents, 2)
	assert.Equal(t, "a", gotBody.Documents[0].ID)
	assert.Equal(t, "b", gotBody.Documents[1].ID)
}

func TestBatchUpsert_EmptyBatchSkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)

	require.NoError(t, client.BatchUpsert(context.Background(), "col-alice", nil))
	assert.Zero(t, calls.Load())
}

func TestBatchUpsert_RejectsOversizedBatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server)

	docs := make([]TaskDocument, MaxBatchSize+1)
	for i := range docs {
		docs[i] = TaskDocument{ID: "x", UpdatedAt: 1}
	}

	err := client.BatchUpsert(context.Background(), "col-alice", docs)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
	assert.Zero(t, calls.Load(), "oversized batches never reach the wire")
}
