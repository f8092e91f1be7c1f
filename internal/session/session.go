package session

import (
	"context"
	"errors"
	"time"

	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/models"
)

var (
	// ErrNotFound 会话不存在（未登录或已注销）
	ErrNotFound = errors.New("session not found")
	// ErrExpired 会话已过期或已被后端拒绝
	ErrExpired = errors.New("session expired")
	// ErrNotDoctor 登录账号不是医生
	ErrNotDoctor = errors.New("account is not a doctor")
)

// Session 单个医生的显式会话
// 登录时创建，注销/过期/后端 401 时失效；通过 context 向下传递，不存在全局状态。
type Session struct {
	ID               string          `json:"id"`
	DoctorID         string          `json:"doctorId"`
	Email            string          `json:"email"`
	FullName         string          `json:"fullName"`
	Role             models.UserRole `json:"role"`
	Token            string          `json:"token"`
	RefreshToken     string          `json:"refreshToken"`
	BackendSessionID string          `json:"backendSessionId"`
	IssuedAt         time.Time       `json:"issuedAt"`
	ExpiresAt        time.Time       `json:"expiresAt"`
}

// Credentials 调用后端所需的认证信息
func (s *Session) Credentials() apiclient.Credentials {
	return apiclient.Credentials{Token: s.Token, SessionID: s.BackendSessionID}
}

// Expired 是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// NeedsRefresh 距离过期不足 before 时需要刷新
func (s *Session) NeedsRefresh(now time.Time, before time.Duration) bool {
	return s.RefreshToken != "" && !s.Expired(now) && s.ExpiresAt.Sub(now) <= before
}

// TTL 剩余有效期
func (s *Session) TTL(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// apply 用登录/刷新结果更新令牌
func (s *Session) apply(resp models.LoginResponse, now time.Time) {
	s.DoctorID = resp.UserID
	s.Email = resp.Email
	s.FullName = resp.FullName
	s.Role = resp.Role
	s.Token = resp.IDToken
	if resp.RefreshToken != "" {
		s.RefreshToken = resp.RefreshToken
	}
	if resp.SessionID != "" {
		s.BackendSessionID = resp.SessionID
	}
	s.IssuedAt = now
	s.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
}

type ctxKey struct{}

// WithSession 将会话放入 context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext 从 context 取会话
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
