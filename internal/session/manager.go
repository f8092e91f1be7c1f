package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Authenticator 后端认证接口（apiclient.Client 实现）
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (models.LoginResponse, error)
	Logout(ctx context.Context, cred apiclient.Credentials) error
}

// InvalidateFunc 会话失效回调
type InvalidateFunc func(sessionID string)

// Manager 会话生命周期：登录创建 → 临近过期时刷新 → 注销/过期/401 失效
type Manager struct {
	auth          Authenticator
	store         Store
	refreshBefore time.Duration
	logger        *zap.Logger
	now           func() time.Time

	refreshGroup singleflight.Group

	mu           sync.RWMutex
	onInvalidate []InvalidateFunc
}

// NewManager 创建会话管理器
func NewManager(auth Authenticator, store Store, refreshBefore time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		auth:          auth,
		store:         store,
		refreshBefore: refreshBefore,
		logger:        logger,
		now:           time.Now,
	}
}

// OnInvalidate 注册失效回调（例如停止该会话的轮询）
func (m *Manager) OnInvalidate(fn InvalidateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onInvalidate = append(m.onInvalidate, fn)
}

// Login 登录后端并创建会话
func (m *Manager) Login(ctx context.Context, email, password, fingerprint string) (*Session, error) {
	resp, err := m.auth.Login(ctx, models.LoginRequest{
		Email:             email,
		Password:          password,
		DeviceFingerprint: fingerprint,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if resp.Role != models.RoleDoctor {
		m.logger.Warn("Rejected non-doctor login",
			zap.String("user_id", resp.UserID),
			zap.String("role", string(resp.Role)),
		)
		return nil, ErrNotDoctor
	}

	now := m.now()
	s := &Session{ID: uuid.NewString()}
	s.apply(resp, now)
	if err := m.store.Save(ctx, s, s.TTL(now)); err != nil {
		return nil, err
	}

	m.logger.Info("Doctor session created",
		zap.String("session_id", s.ID),
		zap.String("doctor_id", s.DoctorID),
		zap.Time("expires_at", s.ExpiresAt),
		zap.Bool("has_refresh_token", s.RefreshToken != ""),
	)
	return s, nil
}

// Resolve 加载会话；过期则失效，临近过期则刷新
func (m *Manager) Resolve(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if s.Expired(now) {
		m.invalidate(ctx, s.ID, "expired")
		return nil, ErrExpired
	}
	if !s.NeedsRefresh(now, m.refreshBefore) {
		return s, nil
	}

	v, err, _ := m.refreshGroup.Do(s.ID, func() (interface{}, error) {
		return m.refresh(ctx, s.ID)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, ErrExpired) {
			m.invalidate(ctx, s.ID, "refresh rejected")
			return nil, ErrExpired
		}
		// 令牌仍在有效期内，刷新失败时继续使用旧令牌
		m.logger.Warn("Session refresh failed, using current token",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
		return s, nil
	}
	return v.(*Session), nil
}

// refresh 以存储中的最新会话为准：之前的并发请求可能已完成刷新或轮换了 refresh token
func (m *Manager) refresh(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.NeedsRefresh(m.now(), m.refreshBefore) {
		return s, nil
	}

	resp, err := m.auth.Refresh(ctx, s.RefreshToken)
	if err != nil {
		return nil, err
	}
	if resp.IDToken == "" || resp.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: refresh returned no usable token", ErrExpired)
	}

	refreshed := *s
	now := m.now()
	refreshed.apply(resp, now)
	if err := m.store.Save(ctx, &refreshed, refreshed.TTL(now)); err != nil {
		return nil, err
	}

	m.logger.Info("Doctor session refreshed",
		zap.String("session_id", s.ID),
		zap.Time("expires_at", refreshed.ExpiresAt),
	)
	return &refreshed, nil
}

// Logout 通知后端并删除会话；后端失败不影响本地失效
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	if err := m.auth.Logout(ctx, s.Credentials()); err != nil {
		m.logger.Warn("Backend logout failed",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
	return m.invalidate(ctx, s.ID, "logout")
}

// InvalidateCredentials 后端返回 401 时调用，按后端 sessionId 找到并删除门户会话
func (m *Manager) InvalidateCredentials(cred apiclient.Credentials) {
	if cred.SessionID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	id, err := m.store.LookupBackendSession(ctx, cred.SessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("Failed to lookup session for invalidation", zap.Error(err))
		}
		return
	}
	m.invalidate(ctx, id, "unauthorized")
}

func (m *Manager) invalidate(ctx context.Context, id, reason string) error {
	err := m.store.Delete(ctx, id)
	if err != nil {
		m.logger.Error("Failed to delete session",
			zap.String("session_id", id),
			zap.Error(err),
		)
	}
	m.logger.Info("Doctor session invalidated",
		zap.String("session_id", id),
		zap.String("reason", reason),
	)

	m.mu.RLock()
	listeners := append([]InvalidateFunc(nil), m.onInvalidate...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(id)
	}
	return err
}
