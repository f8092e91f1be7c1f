package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	loginResp   models.LoginResponse
	loginErr    error
	refreshResp models.LoginResponse
	refreshErr  error
	refreshes   int32
	logouts     []apiclient.Credentials
	mu          sync.Mutex
}

func (f *fakeAuth) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (models.LoginResponse, error) {
	atomic.AddInt32(&f.refreshes, 1)
	return f.refreshResp, f.refreshErr
}

func (f *fakeAuth) Logout(ctx context.Context, cred apiclient.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, cred)
	return errors.New("backend down")
}

func doctorLogin() models.LoginResponse {
	return models.LoginResponse{
		UserID:       "doc-1",
		Email:        "doc@example.test",
		FullName:     "Dr Doc",
		Role:         models.RoleDoctor,
		IDToken:      "id-1",
		RefreshToken: "ref-1",
		ExpiresIn:    3600,
		SessionID:    "backend-s-1",
	}
}

func setupManager(t *testing.T, auth *fakeAuth) (*miniredis.Miniredis, *Manager, *time.Time) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	m := NewManager(auth, NewRedisStore(client, "test:session:"), 10*time.Minute, zap.NewNop())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return mr, m, &now
}

func TestManager_LoginStoresSession(t *testing.T) {
	mr, m, _ := setupManager(t, &fakeAuth{loginResp: doctorLogin()})
	ctx := context.Background()

	s, err := m.Login(ctx, "doc@example.test", "pw", "fp")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "doc-1", s.DoctorID)
	assert.Equal(t, apiclient.Credentials{Token: "id-1", SessionID: "backend-s-1"}, s.Credentials())

	assert.True(t, mr.Exists("test:session:"+s.ID))
	assert.Equal(t, time.Hour, mr.TTL("test:session:"+s.ID))

	loaded, err := m.Resolve(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Token, loaded.Token)
}

func TestManager_LoginRejectsNonDoctor(t *testing.T) {
	resp := doctorLogin()
	resp.Role = models.RolePMV
	_, m, _ := setupManager(t, &fakeAuth{loginResp: resp})

	_, err := m.Login(context.Background(), "pmv@example.test", "pw", "")
	assert.ErrorIs(t, err, ErrNotDoctor)
}

func TestManager_LoginBackendError(t *testing.T) {
	_, m, _ := setupManager(t, &fakeAuth{loginErr: apiclient.ErrUnauthorized})
	_, err := m.Login(context.Background(), "x", "y", "")
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
}

func TestManager_ResolveUnknown(t *testing.T) {
	_, m, _ := setupManager(t, &fakeAuth{})
	_, err := m.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ResolveRefreshesNearExpiry(t *testing.T) {
	auth := &fakeAuth{loginResp: doctorLogin()}
	refreshed := doctorLogin()
	refreshed.IDToken = "id-2"
	refreshed.RefreshToken = ""
	auth.refreshResp = refreshed

	_, m, now := setupManager(t, auth)
	ctx := context.Background()
	s, err := m.Login(ctx, "doc@example.test", "pw", "")
	require.NoError(t, err)

	*now = now.Add(55 * time.Minute)
	got, err := m.Resolve(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "id-2", got.Token)
	assert.Equal(t, "ref-1", got.RefreshToken, "refresh token kept when backend omits it")
	assert.Equal(t, now.Add(time.Hour), got.ExpiresAt)
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.refreshes))

	again, err := m.Resolve(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "id-2", again.Token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.refreshes))
}

func TestManager_RefreshUsesStoredSession(t *testing.T) {
	auth := &fakeAuth{loginResp: doctorLogin()}
	_, m, now := setupManager(t, auth)
	ctx := context.Background()
	s, err := m.Login(ctx, "doc@example.test", "pw", "")
	require.NoError(t, err)

	*now = now.Add(55 * time.Minute)
	stale, err := m.store.Load(ctx, s.ID)
	require.NoError(t, err)
	require.True(t, stale.NeedsRefresh(*now, m.refreshBefore))

	// 另一个请求已完成刷新并轮换了 refresh token
	fresh := *stale
	fresh.Token = "id-3"
	fresh.RefreshToken = "ref-3"
	fresh.ExpiresAt = now.Add(time.Hour)
	require.NoError(t, m.store.Save(ctx, &fresh, fresh.TTL(*now)))

	got, err := m.refresh(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, "id-3", got.Token)
	assert.Equal(t, "ref-3", got.RefreshToken)
	assert.Equal(t, int32(0), atomic.LoadInt32(&auth.refreshes))
}

func TestManager_ConcurrentResolveRefreshesOnce(t *testing.T) {
	auth := &fakeAuth{loginResp: doctorLogin()}
	refreshed := doctorLogin()
	refreshed.IDToken = "id-2"
	refreshed.RefreshToken = "ref-2"
	auth.refreshResp = refreshed

	_, m, now := setupManager(t, auth)
	ctx := context.Background()
	s, err := m.Login(ctx, "doc@example.test", "pw", "")
	require.NoError(t, err)
	*now = now.Add(55 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Resolve(ctx, s.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, "id-2", got.Token)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.refreshes))
}

func TestManager_RefreshFailureKeepsValidToken(t *testing.T) {
	auth := &fakeAuth{loginResp: doctorLogin(), refreshErr: apiclient.ErrTransport}
	_, m, now := setupManager(t, auth)
	ctx := context.Background()
	s, err := m.Login(ctx, "doc@example.test", "pw", "")
	require.NoError(t, err)

	*now = now.Add(55 * time.Minute)
	got, err := m.Resolve(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.Token)
}

func TestManager_RefreshRejectedInvalidates(t *testing.T) {
	auth := &fakeAuth{loginResp: doctorLogin(), refreshErr: apiclient.ErrUnauthorized}
	mr, m, now := setupManager(t, auth)
	ctx := context.Background()
	s, err := m.Login(ctx, "doc@example.test", "pw", "")
	require.NoError(t, err)

	var invalidated string
	m.OnInvalidate(func(id string) { invalidated = id })

	*now = now.Add(55 * time.Minute)
	_, err = m.Resolve(ctx, s.ID)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, s.ID, invalidated)
	assert.False(t, mr.Exists("test:session:"+s.ID))
}

func TestManager_ExpiredSession(t *testing.T) {
	resp := doctorLogin()
	resp.RefreshToken = ""
	_, m, now := setupManager(t, &fakeAuth{loginResp: resp})
	ctx := context.Background()
	s, err := m.Login(ctx, "doc@example.test", "pw", "")
	require.NoError(t, err)

	// miniredis 未快进，键仍在；按会话自身的过期时间判断
	*now = now.Add(2 * time.Hour)
	_, err = m.Resolve(ctx, s.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestManager_Logout(t *testing.T) {
	auth := &fakeAuth{loginResp: doctorLogin()}
	mr, m, _ := setupManager(t, auth)
	ctx := context.Background()
	s, err := m.Login(ctx, "doc@example.test", "pw", "")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, s))
	assert.Len(t, auth.logouts, 1)
	assert.False(t, mr.Exists("test:session:"+s.ID))
	assert.False(t, mr.Exists("test:session:backend:backend-s-1"))

	_, err = m.Resolve(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_InvalidateCredentials(t *testing.T) {
	_, m, _ := setupManager(t, &fakeAuth{loginResp: doctorLogin()})
	ctx := context.Background()
	s, err := m.Login(ctx, "doc@example.test", "pw", "")
	require.NoError(t, err)

	m.InvalidateCredentials(apiclient.Credentials{Token: "whatever", SessionID: "unknown"})
	_, err = m.Resolve(ctx, s.ID)
	require.NoError(t, err)

	m.InvalidateCredentials(s.Credentials())
	_, err = m.Resolve(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := &Session{ID: "s-1"}
	got, ok := FromContext(WithSession(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestSession_NeedsRefresh(t *testing.T) {
	now := time.Now()
	s := &Session{RefreshToken: "r", ExpiresAt: now.Add(5 * time.Minute)}
	assert.True(t, s.NeedsRefresh(now, 10*time.Minute))
	assert.False(t, s.NeedsRefresh(now, time.Minute))

	s.RefreshToken = ""
	assert.False(t, s.NeedsRefresh(now, 10*time.Minute))
	assert.Equal(t, time.Duration(0), (&Session{ExpiresAt: now.Add(-time.Second)}).TTL(now))
}
