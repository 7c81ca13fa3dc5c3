package odata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/testutil"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
)

// fakeService serves canned entity sets and records the query options it
// received.
type fakeService struct {
	mu       sync.Mutex
	requests []*http.Request
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeService) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/odata/{entity}", func(w http.ResponseWriter, req *http.Request) {
		n := f.inFlight.Add(1)
		defer f.inFlight.Add(-1)
		for {
			p := f.peak.Load()
			if n <= p || f.peak.CompareAndSwap(p, n) {
				break
			}
		}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		if f.delay > 0 {
			time.Sleep(f.delay)
		}

		w.Header().Set("Content-Type", "application/json")
		switch chi.URLParam(req, "entity") {
		case "Customers":
			_, _ = w.Write([]byte(`{
				"@odata.context": "$metadata#Customers",
				"value": [
					{"CustomerID": 101, "name": "Ann", "Address": {"City": "Berlin", "Zip": "10115"}},
					{"CustomerID": 102, "name": "O'Brien", "Balance": 12.5, "Tags": ["a", {"k": 1}]}
				]
			}`))
		case "Empty":
			_, _ = w.Write([]byte(`{"value": []}`))
		case "NoValue":
			_, _ = w.Write([]byte(`{"error": null}`))
		case "Broken":
			_, _ = w.Write([]byte(`{"value": [1, 2]}`))
		default:
			http.Error(w, `{"error":"entity set not found"}`, http.StatusNotFound)
		}
	})
	return r
}

func (f *fakeService) last() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, f *fakeService, maxConcurrency int) *Client {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)

	c, err := NewClient(core.ODataConfig{
		BaseURL:        srv.URL + "/odata/",
		MaxConcurrency: maxConcurrency,
	}, WithLogger(testutil.NewTestLogger(t)), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestClient_Query(t *testing.T) {
	f := &fakeService{}
	c := newTestClient(t, f, 0)

	res, err := c.Query(context.Background(),
		"SELECT CustomerID, name FROM Customers WHERE CustomerID > 100 ORDER BY name LIMIT 10")
	require.NoError(t, err)

	req := f.last()
	q := req.URL.Query()
	assert.Equal(t, "json", q.Get("$format"))
	assert.Equal(t, "CustomerID, name", q.Get("$select"))
	assert.Equal(t, "CustomerID gt 100", q.Get("$filter"))
	assert.Equal(t, "name", q.Get("$orderby"))
	assert.Equal(t, "10", q.Get("$top"))
	assert.False(t, q.Has("$skip"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))

	assert.Equal(t, []string{"CustomerID", "name", "Address.City", "Address.Zip", "Balance", "Tags"}, res.Columns)
	assert.Equal(t, [][]any{
		{int64(101), "Ann", "Berlin", "10115", nil, nil},
		{int64(102), "O'Brien", nil, nil, 12.5, []any{"a", map[string]any{"k": int64(1)}}},
	}, res.Rows)
}

func TestClient_EmptyResults(t *testing.T) {
	f := &fakeService{}
	c := newTestClient(t, f, 0)

	for _, entity := range []string{"Empty", "NoValue"} {
		res, err := c.Query(context.Background(), "SELECT * FROM "+entity)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Len())
		assert.Empty(t, res.Columns)
	}
}

func TestClient_Errors(t *testing.T) {
	f := &fakeService{}
	c := newTestClient(t, f, 0)
	ctx := context.Background()

	t.Run("status", func(t *testing.T) {
		_, err := c.Query(ctx, "SELECT * FROM Missing")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNotFound, se.StatusCode)
		assert.Contains(t, se.Body, "entity set not found")
	})

	t.Run("rows are not objects", func(t *testing.T) {
		_, err := c.Query(ctx, "SELECT * FROM Broken")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected an object per row")
	})

	t.Run("translation happens before any request", func(t *testing.T) {
		before := len(f.requests)
		_, err := c.Query(ctx, "SELECT * FROM Customers WHERE a BETWEEN 1 AND 2")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "translate query")
		assert.Len(t, f.requests, before)
	})
}

func TestClient_QueryAll(t *testing.T) {
	f := &fakeService{delay: 20 * time.Millisecond}
	c := newTestClient(t, f, 2)

	queries := []string{
		"SELECT * FROM Empty",
		"SELECT * FROM Customers",
		"SELECT * FROM Empty",
		"SELECT name FROM Customers",
		"SELECT * FROM Empty",
	}
	results, err := c.QueryAll(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	assert.Equal(t, 0, results[0].Len())
	assert.Equal(t, 2, results[1].Len())
	assert.Equal(t, 2, results[3].Len())
	assert.LessOrEqual(t, f.peak.Load(), int32(2))
}

func TestClient_QueryAllFailsFast(t *testing.T) {
	f := &fakeService{}
	c := newTestClient(t, f, 1)

	_, err := c.QueryAll(context.Background(), []string{"SELECT * FROM Empty", "SELECT * FROM Missing"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "query 2:"), err.Error())
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "svc/odata", "ftp://svc/odata", "http://"} {
		_, err := NewClient(core.ODataConfig{BaseURL: u})
		assert.ErrorIs(t, err, ErrBaseURL, u)
	}
}
