package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"doctor-portal/internal/models"
	"doctor-portal/internal/poller"
	"doctor-portal/internal/session"

	"go.uber.org/zap"
)

// SessionResolver 每次轮询前重新解析会话，以便使用刷新后的令牌并感知失效
type SessionResolver interface {
	Resolve(ctx context.Context, id string) (*session.Session, error)
}

// UnreadTracker 每个会话一个未读数轮询器，结果写入 Redis
// - 前台：按固定间隔刷新；后台：暂停；回到前台立即刷新
// - MQTT 病例事件触发立即刷新（由轮询器的在途保护合并）
// - 会话失效时停止轮询
type UnreadTracker struct {
	backend  Backend
	sessions SessionResolver
	kv       KVStore
	interval time.Duration
	prefix   string
	logger   *zap.Logger

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	pollers map[string]*trackedPoller
}

type trackedPoller struct {
	doctorID string
	poller   *poller.Poller
}

// NewUnreadTracker 创建未读数跟踪器
func NewUnreadTracker(backend Backend, sessions SessionResolver, kv KVStore, interval time.Duration, logger *zap.Logger) *UnreadTracker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &UnreadTracker{
		backend:  backend,
		sessions: sessions,
		kv:       kv,
		interval: interval,
		prefix:   "doctor-portal:unread:",
		logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
		pollers:  make(map[string]*trackedPoller),
	}
}

func (t *UnreadTracker) key(doctorID string) string {
	return t.prefix + doctorID
}

// Track 为会话启动轮询（已存在则忽略）
func (t *UnreadTracker) Track(sess *session.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pollers[sess.ID]; ok {
		return
	}
	if t.baseCtx.Err() != nil {
		return
	}

	sessionID := sess.ID
	p := poller.New("unread:"+sessionID, t.interval, func(ctx context.Context) error {
		return t.poll(ctx, sessionID)
	}, t.logger)
	t.pollers[sessionID] = &trackedPoller{doctorID: sess.DoctorID, poller: p}
	p.Start(t.baseCtx)

	t.logger.Debug("Unread polling started",
		zap.String("session_id", sessionID),
		zap.Duration("interval", t.interval),
	)
}

// Untrack 停止会话的轮询；不等待在途请求结束（可能在轮询回调内被调用）
func (t *UnreadTracker) Untrack(sessionID string) {
	t.mu.Lock()
	tp, ok := t.pollers[sessionID]
	delete(t.pollers, sessionID)
	t.mu.Unlock()

	if !ok {
		return
	}
	go tp.poller.Stop()
	t.logger.Debug("Unread polling stopped", zap.String("session_id", sessionID))
}

// Tracked 正在轮询的会话数
func (t *UnreadTracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pollers)
}

// SetPresence 客户端前后台切换
func (t *UnreadTracker) SetPresence(sess *session.Session, foreground bool) {
	t.Track(sess)

	t.mu.Lock()
	tp, ok := t.pollers[sess.ID]
	t.mu.Unlock()
	if !ok {
		return
	}
	if foreground {
		tp.poller.Resume()
	} else {
		tp.poller.Pause()
	}
}

// Paused 会话的轮询是否已暂停
func (t *UnreadTracker) Paused(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tp, ok := t.pollers[sessionID]
	return ok && tp.poller.Paused()
}

// RefreshDoctor 触发该医生所有会话立即刷新，返回触发的会话数
func (t *UnreadTracker) RefreshDoctor(doctorID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, tp := range t.pollers {
		if tp.doctorID == doctorID {
			tp.poller.Trigger()
			n++
		}
	}
	return n
}

// Counts 返回未读数：优先读缓存，未命中时直接请求后端并写缓存
func (t *UnreadTracker) Counts(ctx context.Context, sess *session.Session) (models.UnreadCounts, error) {
	t.Track(sess)

	counts, err := t.cached(ctx, sess.DoctorID)
	if err == nil {
		return counts, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		t.logger.Warn("Failed to read unread cache", zap.Error(err))
	}
	return t.fetch(ctx, sess)
}

func (t *UnreadTracker) cached(ctx context.Context, doctorID string) (models.UnreadCounts, error) {
	raw, err := t.kv.Get(ctx, t.key(doctorID))
	if err != nil {
		return models.UnreadCounts{}, err
	}
	var counts models.UnreadCounts
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		return models.UnreadCounts{}, fmt.Errorf("failed to unmarshal unread counts: %w", err)
	}
	return counts, nil
}

func (t *UnreadTracker) fetch(ctx context.Context, sess *session.Session) (models.UnreadCounts, error) {
	counts, err := t.backend.UnreadCounts(ctx, sess.Credentials())
	if err != nil {
		return models.UnreadCounts{}, fmt.Errorf("failed to fetch unread counts: %w", err)
	}
	if counts.UnreadByCaseID == nil {
		counts.UnreadByCaseID = map[string]int{}
	}

	raw, err := json.Marshal(counts)
	if err != nil {
		return counts, fmt.Errorf("failed to marshal unread counts: %w", err)
	}
	// 缓存两个轮询周期，轮询停止后自然过期
	if err := t.kv.Set(ctx, t.key(sess.DoctorID), string(raw), 2*t.interval); err != nil {
		t.logger.Warn("Failed to cache unread counts", zap.Error(err))
	}
	return counts, nil
}

func (t *UnreadTracker) poll(ctx context.Context, sessionID string) error {
	sess, err := t.sessions.Resolve(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			t.Untrack(sessionID)
			return nil
		}
		return err
	}
	_, err = t.fetch(ctx, sess)
	return err
}

// Close 停止所有轮询并等待结束
func (t *UnreadTracker) Close() {
	t.cancel()

	t.mu.Lock()
	pollers := t.pollers
	t.pollers = make(map[string]*trackedPoller)
	t.mu.Unlock()

	for _, tp := range pollers {
		tp.poller.Stop()
	}
}
