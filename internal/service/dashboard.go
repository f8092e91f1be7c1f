package service

import (
	"context"
	"fmt"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/models"
	"doctor-portal/internal/session"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// dashboardQueueSize 本地 SLA 分布统计的待认领病例数上限
const dashboardQueueSize = 100

// DashboardView 工作台
type DashboardView struct {
	Stats      models.DoctorDashboardStats `json:"stats"`
	SLAMetrics *models.SLAMetrics          `json:"slaMetrics,omitempty"`
	// Queue 待认领队列按当前时间计算的 SLA 分布
	Queue caselogic.SLABreakdown `json:"queue"`
	// MyCases 当前医生进行中病例的 SLA 分布
	MyCases caselogic.SLABreakdown `json:"myCases"`
}

// DashboardService 工作台数据
type DashboardService struct {
	backend   Backend
	annotator *Annotator
	logger    *zap.Logger
}

// NewDashboardService 创建工作台服务
func NewDashboardService(backend Backend, annotator *Annotator, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		backend:   backend,
		annotator: annotator,
		logger:    logger,
	}
}

// Dashboard 并发拉取统计、SLA 指标和队列；SLA 指标失败不影响其余部分
func (d *DashboardService) Dashboard(ctx context.Context, sess *session.Session) (DashboardView, error) {
	var (
		out     DashboardView
		pending models.Paginated[models.Case]
		mine    models.Paginated[models.Case]
	)
	cred := sess.Credentials()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := d.backend.DashboardStats(gctx, cred)
		if err != nil {
			return fmt.Errorf("failed to load dashboard stats: %w", err)
		}
		out.Stats = stats
		return nil
	})
	g.Go(func() error {
		m, err := d.backend.SLAMetrics(gctx, cred)
		if err != nil {
			d.logger.Warn("SLA metrics unavailable", zap.Error(err))
			return nil
		}
		out.SLAMetrics = &m
		return nil
	})
	g.Go(func() error {
		p, err := d.backend.PendingCases(gctx, cred, 1, dashboardQueueSize)
		if err != nil {
			return fmt.Errorf("failed to load pending queue: %w", err)
		}
		pending = p
		return nil
	})
	g.Go(func() error {
		p, err := d.backend.MyCases(gctx, cred, models.CaseListParams{
			Page:     1,
			PageSize: dashboardQueueSize,
			Status:   caselogic.StatusInReview,
		})
		if err != nil {
			return fmt.Errorf("failed to load my cases: %w", err)
		}
		mine = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return DashboardView{}, err
	}

	for _, v := range d.annotator.Views(pending.Data, sess.DoctorID) {
		out.Queue.Add(v.SLAStatus)
	}
	for _, v := range d.annotator.Views(mine.Data, sess.DoctorID) {
		out.MyCases.Add(v.SLAStatus)
	}
	return out, nil
}
