package legislature

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(base, billsList string) Config {
	return Config{
		BaseURL:        base,
		BillsListURL:   billsList,
		UserAgent:      "mirror-test/1.0",
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}
}

func TestClient_Bills(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list-bills-2025.json", r.URL.Path)
		assert.Equal(t, "mirror-test/1.0", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `[{"billType":"HB","billNumber":2},{"billType":"SB","billNumber":45}]`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, srv.URL+"/list-bills-%s.json"), nil)
	bills, raw, err := c.Bills(context.Background(), "2025")
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, "HB-2", bills[0].Key())
	assert.Equal(t, "SB 45", bills[1].Display())
	assert.Contains(t, string(raw), `"billNumber":2`)
}

func TestClient_Documents(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docs/v1/documents/getBillAmendments", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "69", q.Get("legislatureOrdinal"))
		assert.Equal(t, "20251", q.Get("sessionOrdinal"))
		assert.Equal(t, "HB", q.Get("billType"))
		assert.Equal(t, "123", q.Get("billNumber"))
		fmt.Fprint(w, `[{"id":900,"fileName":"HB0123.001.001_x_final-a.pdf"}]`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, srv.URL+"/%s"), nil)
	docs, err := c.Documents(context.Background(), KindAmendments, 69, 20251, Bill{BillType: "HB", BillNumber: 123})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(900), docs[0].ID)
}

func TestClient_ShortPDFURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "42", r.URL.Query().Get("documentId"))
		fmt.Fprint(w, "  https://cdn.example.com/doc-42.pdf\n")
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, srv.URL+"/%s"), nil)
	got, err := c.ShortPDFURL(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/doc-42.pdf", got)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "%PDF-1.4 payload")
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, srv.URL+"/%s"), nil)
	body, err := c.Download(context.Background(), srv.URL+"/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, string(body), "%PDF")
}

func TestClient_RefetchesSameURL(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "%PDF-1.4 payload")
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, srv.URL+"/%s"), nil)
	for i := 0; i < 2; i++ {
		body, err := c.Download(context.Background(), srv.URL+"/doc.pdf")
		require.NoError(t, err)
		assert.Contains(t, string(body), "%PDF")
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, srv.URL+"/%s"), nil)
	_, err := c.Download(context.Background(), srv.URL+"/missing.pdf")
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}
