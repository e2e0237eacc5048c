package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	method, path, query, auth, contentType, idempotency, body string
}

func recorder(t *testing.T) (*httptest.Server, *seenRequest) {
	t.Helper()
	seen := &seenRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*seen = seenRequest{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			idempotency: r.Header.Get("Idempotency-Key"),
			body:        string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"status":"error","msg":"renter already booked","code":"BOOKING_CONFLICT"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestRentalsClient_Requests(t *testing.T) {
	srv, seen := recorder(t)
	c := NewRentalsClient(srv.URL, "tok")

	resp, err := c.Confirm(map[string]any{"host_id": "h1"}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "BOOKING_CONFLICT: renter already booked", GetErrorMessage(resp))
	assert.Equal(t, seenRequest{
		method:      http.MethodPost,
		path:        "/api/v1/rentals/confirm",
		auth:        "Bearer tok",
		contentType: "application/json",
		idempotency: "key-1",
		body:        `{"host_id":"h1"}`,
	}, *seen)

	_, err = c.AdminComplete("r1")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/admin/rentals/r1/complete", seen.path)
	assert.Empty(t, seen.contentType, "bodyless admin actions send no content type")

	_, err = c.Orders("u1", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, seen.method)
	assert.Equal(t, "/api/v1/rentals/user/u1/orders", seen.path)
	assert.Equal(t, "step=2&limit=5", seen.query)

	_, err = c.TopMatches(url.Values{"city": {"Kochi"}})
	require.NoError(t, err)
	assert.Equal(t, "city=Kochi", seen.query)
}

func TestHttpClient_NoToken(t *testing.T) {
	srv, seen := recorder(t)

	_, err := NewHttpClient(srv.URL).GET("/health")
	require.NoError(t, err)
	assert.Empty(t, seen.auth)
}
