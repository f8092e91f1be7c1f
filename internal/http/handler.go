package httpapi

import (
	"context"
	"net/http"
	"time"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/service"
	"doctor-portal/internal/session"

	"go.uber.org/zap"
)

// Settings 门户对客户端公开的行为参数
type Settings struct {
	SLATargetMinutes   int                       `json:"slaTargetMinutes"`
	ChatClaimPolicy    caselogic.ChatClaimPolicy `json:"chatClaimPolicy"`
	EditWindowMinutes  int                       `json:"editWindowMinutes"`
	EditRenewOnUpdate  bool                      `json:"editRenewOnUpdate"`
	UnreadPollSeconds  int                       `json:"unreadPollSeconds"`
	MessagePollSeconds int                       `json:"messagePollSeconds"`
	MessagePageSize    int                       `json:"messagePageSize"`
}

// HealthCheck 单项依赖检查（Redis / PostgreSQL）
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// PortalHandler 医生门户 HTTP 处理器
type PortalHandler struct {
	sessions  *session.Manager
	cases     *service.CaseService
	dashboard *service.DashboardService
	exporter  *service.HistoryExporter
	unread    *service.UnreadTracker
	settings  Settings
	checks    []HealthCheck
	now       func() time.Time
	logger    *zap.Logger
}

// Deps 处理器依赖
type Deps struct {
	Sessions  *session.Manager
	Cases     *service.CaseService
	Dashboard *service.DashboardService
	Exporter  *service.HistoryExporter
	Unread    *service.UnreadTracker
	Settings  Settings
	Checks    []HealthCheck
}

// NewPortalHandler 创建处理器
func NewPortalHandler(deps Deps, logger *zap.Logger) *PortalHandler {
	return &PortalHandler{
		sessions:  deps.Sessions,
		cases:     deps.Cases,
		dashboard: deps.Dashboard,
		exporter:  deps.Exporter,
		unread:    deps.Unread,
		settings:  deps.Settings,
		checks:    deps.Checks,
		now:       time.Now,
		logger:    logger,
	}
}

// Handler 返回带请求日志的完整路由
func (h *PortalHandler) Handler() http.Handler {
	r := NewRouter()
	h.Register(r)
	return withRequestLog(h.logger, r)
}
