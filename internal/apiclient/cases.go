package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/models"
)

const defaultPageSize = 10

func pageQuery(page, pageSize int, status caselogic.CaseStatus) map[string]string {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	q := map[string]string{
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(pageSize),
	}
	if status != "" {
		q["status"] = string(status)
	}
	return q
}

// PendingCases GET /doctor/cases/pending（等待医生接诊的队列）
func (c *Client) PendingCases(ctx context.Context, cred Credentials, page, pageSize int) (models.Paginated[models.Case], error) {
	return doRaw[models.Paginated[models.Case]](ctx, c, call{
		method: http.MethodGet,
		path:   "/doctor/cases/pending",
		query:  pageQuery(page, pageSize, caselogic.StatusAwaitingDoctor),
		cred:   &cred,
	})
}

// MyCases GET /doctor/cases/my-cases
func (c *Client) MyCases(ctx context.Context, cred Credentials, params models.CaseListParams) (models.Paginated[models.Case], error) {
	return doRaw[models.Paginated[models.Case]](ctx, c, call{
		method: http.MethodGet,
		path:   "/doctor/cases/my-cases",
		query:  pageQuery(params.Page, params.PageSize, params.Status),
		cred:   &cred,
	})
}

// CompletedCases GET /doctor/cases/history
func (c *Client) CompletedCases(ctx context.Context, cred Credentials, page, pageSize int) (models.Paginated[models.Case], error) {
	return doRaw[models.Paginated[models.Case]](ctx, c, call{
		method: http.MethodGet,
		path:   "/doctor/cases/history",
		query:  pageQuery(page, pageSize, caselogic.StatusCompleted),
		cred:   &cred,
	})
}

// GetCase GET /doctor/cases/{id}
func (c *Client) GetCase(ctx context.Context, cred Credentials, caseID string) (models.Case, error) {
	return doEnvelope[models.Case](ctx, c, call{
		method:     http.MethodGet,
		path:       "/doctor/cases/{caseId}",
		pathParams: map[string]string{"caseId": caseID},
		cred:       &cred,
	})
}

// ClaimCase POST /doctor/cases/{id}/claim
// 认领是一个有两种结果的请求：成功返回更新后的病例；后端拒绝（409 或 success=false）返回 ErrConflict。
func (c *Client) ClaimCase(ctx context.Context, cred Credentials, caseID string) (models.Case, error) {
	cs, err := doEnvelope[models.Case](ctx, c, call{
		method:     http.MethodPost,
		path:       "/doctor/cases/{caseId}/claim",
		pathParams: map[string]string{"caseId": caseID},
		cred:       &cred,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && errors.Is(err, ErrRejected) && apiErr.StatusCode < http.StatusInternalServerError {
			apiErr.kind = ErrConflict
		}
		return models.Case{}, err
	}
	return cs, nil
}

// SubmitDiagnosis POST /doctor/cases/{id}/diagnosis（创建与修改使用同一接口）
func (c *Client) SubmitDiagnosis(ctx context.Context, cred Credentials, req models.SubmitDiagnosisRequest) (models.Case, error) {
	return doEnvelope[models.Case](ctx, c, call{
		method:     http.MethodPost,
		path:       "/doctor/cases/{caseId}/diagnosis",
		pathParams: map[string]string{"caseId": req.CaseID},
		body:       req,
		cred:       &cred,
	})
}

// DashboardStats GET /doctor/dashboard/stats
func (c *Client) DashboardStats(ctx context.Context, cred Credentials) (models.DoctorDashboardStats, error) {
	return doEnvelope[models.DoctorDashboardStats](ctx, c, call{
		method: http.MethodGet,
		path:   "/doctor/dashboard/stats",
		cred:   &cred,
	})
}

// SLAMetrics GET /doctor/dashboard/sla-metrics
func (c *Client) SLAMetrics(ctx context.Context, cred Credentials) (models.SLAMetrics, error) {
	return doEnvelope[models.SLAMetrics](ctx, c, call{
		method: http.MethodGet,
		path:   "/doctor/dashboard/sla-metrics",
		cred:   &cred,
	})
}
