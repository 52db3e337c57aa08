package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/payload"
	"github.com/matthewbaird/tablefilter/internal/rows"
)

func priorityHigh() rows.Query {
	return rows.Query{
		Filter: &payload.CompoundFilter{Operator: catalog.And, Filters: []payload.Filter{
			&payload.PropertyFilter{Property: "Priority", Type: catalog.Select, Condition: "equals", Value: "High"},
		}},
		MaxNestingLevel: 2,
	}
}

func TestClient_PostsQueryAndMapsRows(t *testing.T) {
	var gotBody []byte
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 3, "name": "Deal A", "company": "Acme", "status": "closed", "priority": "High", "estimatedValue": 100, "accountOwner": "Jo"},
			{"name": "Deal B", "company": "Globex", "status": "weird", "priority": "Low"}
		]`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	c := NewClient(srv.URL+"/api/", WithLogger(zerolog.New(&logs)))
	q := priorityHigh()
	q.Sort = &rows.Sort{Property: "EstimatedValue", Direction: rows.Descending}

	got := c.FetchRows(context.Background(), q)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/data", gotPath)
	assert.JSONEq(t, `{
		"filter":{"and":[{"property":"Priority","select":{"equals":"High"}}]},
		"maxNestingLevel":2,
		"sort":{"property":"Estimated Value","direction":"descending"}
	}`, string(gotBody))
	assert.Equal(t, "EstimatedValue", q.Sort.Property, "caller's query is not modified")

	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].ID)
	assert.Equal(t, rows.StatusClosed, got[0].Status)
	assert.Equal(t, 2, got[1].ID)
	assert.Equal(t, rows.StatusProposal, got[1].Status)
	assert.Contains(t, logs.String(), "unknown status")
}

func TestClient_UnfilteredBody(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got := NewClient(srv.URL).FetchRows(context.Background(), rows.Query{MaxNestingLevel: 2})
	assert.JSONEq(t, `{"maxNestingLevel":2}`, string(gotBody))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_FailuresYieldEmptyRows(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		logged  string
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}, "unexpected status 500"},
		{"object instead of array", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"rows":[]}`))
		}, "not an array"},
		{"malformed json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"id":`))
		}, "decoding records"},
		{"wrong field types", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"id":"seven"}]`))
		}, "decoding records"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			var logs bytes.Buffer
			got := NewClient(srv.URL, WithLogger(zerolog.New(&logs))).FetchRows(context.Background(), priorityHigh())
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Contains(t, logs.String(), tc.logged)
			assert.Contains(t, logs.String(), srv.URL+"/data")
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var logs bytes.Buffer
	got := NewClient(url, WithLogger(zerolog.New(&logs))).FetchRows(context.Background(), rows.Query{})
	assert.Empty(t, got)
	assert.Contains(t, logs.String(), `"level":"error"`)
}

func TestStoreFetcher(t *testing.T) {
	store := rows.NewMemoryStore(catalog.Default())
	require.NoError(t, rows.Seed(context.Background(), store, zerolog.Nop()))
	f := NewStoreFetcher(store, zerolog.Nop())

	got := f.FetchRows(context.Background(), priorityHigh())
	ids := make([]int, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.Equal(t, []int{1, 4, 8, 10}, ids)

	sorted := f.FetchRows(context.Background(), rows.Query{Sort: &rows.Sort{Property: "EstimatedValue", Direction: rows.Descending}})
	require.NotEmpty(t, sorted)
	assert.Equal(t, 7, sorted[0].ID)

	bad := f.FetchRows(context.Background(), rows.Query{Sort: &rows.Sort{Property: "Budget"}})
	assert.NotNil(t, bad)
	assert.Empty(t, bad)
}

func TestStoreFetcher_RowsAreDisplayShaped(t *testing.T) {
	store := rows.NewMemoryStore(catalog.Default())
	require.NoError(t, store.Insert(context.Background(), rows.Record{Name: "X", Status: "closed"}))

	got := NewStoreFetcher(store, zerolog.Nop()).FetchRows(context.Background(), rows.Query{})
	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Status":"Closed"`)
}
