package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"rentmate/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestParseToken(t *testing.T) {
	valid, err := SignToken(testSecret, Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	admin, err := SignToken(testSecret, Identity{UserID: "a1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)
	expired, err := SignToken(testSecret, Identity{UserID: "u1"}, -time.Hour)
	require.NoError(t, err)
	foreign, err := SignToken("other-secret", Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := SignToken(testSecret, Identity{}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		want    Identity
		wantErr bool
	}{
		{name: "bearer user defaults role", header: "Bearer " + valid, want: Identity{UserID: "u1", Role: RoleUser}},
		{name: "lowercase scheme", header: "bearer " + admin, want: Identity{UserID: "a1", Role: RoleAdmin}},
		{name: "bare token", header: valid, want: Identity{UserID: "u1", Role: RoleUser}},
		{name: "missing", header: "  ", wantErr: true},
		{name: "expired", header: "Bearer " + expired, wantErr: true},
		{name: "wrong key", header: "Bearer " + foreign, wantErr: true},
		{name: "no subject", header: "Bearer " + noSubject, wantErr: true},
		{name: "alg none", header: "Bearer " + none, wantErr: true},
		{name: "garbage", header: "Bearer abc.def", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(tt.header, []byte(testSecret))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	var seen Identity
	h := Authenticate(testSecret, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	token, err := SignToken(testSecret, Identity{UserID: "u1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, Identity{UserID: "u1", Role: RoleAdmin}, seen)
	assert.True(t, seen.Caller().Admin)
}

func TestAdminOnly(t *testing.T) {
	handle := AdminOnly(func(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
		_, _ = w.Write([]byte(ps.ByName("id")))
	})

	tests := []struct {
		name string
		id   *Identity
		code int
	}{
		{name: "anonymous", code: http.StatusUnauthorized},
		{name: "user", id: &Identity{UserID: "u1", Role: RoleUser}, code: http.StatusForbidden},
		{name: "admin", id: &Identity{UserID: "a1", Role: RoleAdmin}, code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.id != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tt.id))
			}
			w := httptest.NewRecorder()
			handle(w, req, httprouter.Params{{Key: "id", Value: "r1"}})
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "r1", w.Body.String())
			}
		})
	}
}

func TestUserRateLimiter_Allow(t *testing.T) {
	rl := NewUserRateLimiter(2, time.Minute, logger.Discard())
	defer rl.Stop()

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:a"))
	assert.False(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:b"), "keys are independent")
	assert.True(t, rl.Allow(""), "empty key is never limited")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("user:a"), "window slides")
}

func TestUserRateLimit_KeysByIdentity(t *testing.T) {
	rl := NewUserRateLimiter(1, time.Minute, logger.Discard())
	defer rl.Stop()

	h := UserRateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(id *Identity) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if id != nil {
			req = req.WithContext(WithIdentity(req.Context(), *id))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(&Identity{UserID: "u1"}))
	assert.Equal(t, http.StatusTooManyRequests, send(&Identity{UserID: "u1"}))
	assert.Equal(t, http.StatusOK, send(&Identity{UserID: "u2"}), "same IP, different user")
	assert.Equal(t, http.StatusOK, send(nil))
	assert.Equal(t, http.StatusTooManyRequests, send(nil))
}

func TestIdempotency(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if strings.HasSuffix(r.URL.Path, "/fail") {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"n":` + string(rune('0'+n)) + `}`))
	}))

	send := func(path, key, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if key != "" {
			req.Header.Set(IdempotencyHeader, key)
		}
		if user != "" {
			req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: user}))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send("/confirm", "k1", "u1")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, `{"n":1}`, first.Body.String())

	replay := send("/confirm", "k1", "u1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, `{"n":1}`, replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), calls.Load())

	other := send("/confirm", "k1", "u2")
	assert.Equal(t, `{"n":2}`, other.Body.String(), "keys are scoped per caller")

	send("/fail", "k2", "u1")
	send("/fail", "k2", "u1")
	assert.Equal(t, int32(4), calls.Load(), "failures are not cached")

	send("/confirm", "", "u1")
	assert.Equal(t, int32(5), calls.Load())
}
