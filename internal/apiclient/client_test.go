package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"doctor-portal/common/caselogic"
	"doctor-portal/common/config"
	"doctor-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCred = Credentials{Token: "tok-123", SessionID: "sess-9"}

func newTestClient(t *testing.T, h http.Handler) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.BackendConfig{
		BaseURL:           srv.URL,
		Timeout:           5 * time.Second,
		DeviceFingerprint: "fp-abc",
	}, zap.NewNop())
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string, errs ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"data":    data,
		"message": message,
		"errors":  errs,
	})
}

func TestClient_SetsHeaders(t *testing.T) {
	var got http.Header
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeEnvelope(w, http.StatusOK, true, map[string]any{"id": "doc-1", "email": "d@example.test", "fullName": "Dr D", "role": "Doctor"}, "ok")
	}))

	user, err := c.Profile(context.Background(), testCred)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", user.ID)
	assert.Equal(t, models.RoleDoctor, user.Role)

	assert.Equal(t, "Bearer tok-123", got.Get("Authorization"))
	assert.Equal(t, "sess-9", got.Get("X-Session-Id"))
	assert.Equal(t, "fp-abc", got.Get("X-Device-Fingerprint"))
	assert.Len(t, got.Get("X-Request-Id"), 36)
}

func TestClient_EnvelopeFailureIsNotTrusted(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, map[string]any{"id": "c-1"}, "case locked", "locked by admin", "try later")
	}))

	cs, err := c.GetCase(context.Background(), testCred, "c-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Empty(t, cs.ID)
	assert.Equal(t, "locked by admin, try later", UserMessage(err))
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusUnprocessableEntity, ErrRejected},
		{http.StatusInternalServerError, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, false, nil, "nope")
			}))
			_, err := c.GetCase(context.Background(), testCred, "c-1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Equal(t, "nope", UserMessage(err))
		})
	}
}

func TestClient_UnauthorizedInvokesHook(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	var invalidated Credentials
	c.OnUnauthorized(func(cred Credentials) { invalidated = cred })

	_, err := c.DashboardStats(context.Background(), testCred)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, testCred, invalidated)
	assert.Equal(t, defaultErrorMessage, UserMessage(err))
}

func TestClient_RetriesOnlyGet(t *testing.T) {
	var gets, posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if atomic.AddInt32(&gets, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			writeEnvelope(w, http.StatusOK, true, map[string]any{"pendingCases": 3}, "ok")
			return
		}
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(config.BackendConfig{BaseURL: srv.URL, RetryCount: 2}, zap.NewNop())
	c.httpClient.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	stats, err := c.DashboardStats(context.Background(), testCred)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.PendingCases)
	assert.Equal(t, int32(2), atomic.LoadInt32(&gets))

	_, err = c.ClaimCase(context.Background(), testCred, "c-1")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(config.BackendConfig{BaseURL: url}, zap.NewNop())
	_, err := c.UnreadCounts(context.Background(), testCred)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestClient_DecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	_, err := c.Threads(context.Background(), testCred)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestClient_LoginAddsFingerprint(t *testing.T) {
	var body models.LoginRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeEnvelope(w, http.StatusOK, true, models.LoginResponse{
			UserID: "doc-1", IDToken: "id-tok", RefreshToken: "ref-tok", ExpiresIn: 3600, SessionID: "s-1", Role: models.RoleDoctor,
		}, "ok")
	}))

	resp, err := c.Login(context.Background(), models.LoginRequest{Email: "d@example.test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "id-tok", resp.IDToken)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "fp-abc", body.DeviceFingerprint)
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 409, Path: "/x", RequestID: "r-1", kind: ErrConflict, Message: "taken"}
	assert.Equal(t, "conflict /x (status 409, request r-1): taken", err.Error())
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
	assert.Equal(t, 0, StatusCode(errors.New("boom")))
}

func TestPageQuery(t *testing.T) {
	assert.Equal(t, map[string]string{"page": "1", "pageSize": "10"}, pageQuery(0, 0, ""))
	assert.Equal(t, map[string]string{"page": "3", "pageSize": "25", "status": "Completed"}, pageQuery(3, 25, caselogic.StatusCompleted))
}
