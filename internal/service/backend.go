package service

import (
	"context"
	"errors"
	"fmt"

	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/models"
	"doctor-portal/internal/repository"
)

// Backend 服务层依赖的后端 API（apiclient.Client 实现，测试中替换为 fake）
type Backend interface {
	PendingCases(ctx context.Context, cred apiclient.Credentials, page, pageSize int) (models.Paginated[models.Case], error)
	MyCases(ctx context.Context, cred apiclient.Credentials, params models.CaseListParams) (models.Paginated[models.Case], error)
	CompletedCases(ctx context.Context, cred apiclient.Credentials, page, pageSize int) (models.Paginated[models.Case], error)
	GetCase(ctx context.Context, cred apiclient.Credentials, caseID string) (models.Case, error)
	ClaimCase(ctx context.Context, cred apiclient.Credentials, caseID string) (models.Case, error)
	SubmitDiagnosis(ctx context.Context, cred apiclient.Credentials, req models.SubmitDiagnosisRequest) (models.Case, error)
	DashboardStats(ctx context.Context, cred apiclient.Credentials) (models.DoctorDashboardStats, error)
	SLAMetrics(ctx context.Context, cred apiclient.Credentials) (models.SLAMetrics, error)

	Messages(ctx context.Context, cred apiclient.Credentials, caseID string, limit int) (models.ChatMessagesResponse, error)
	SendMessage(ctx context.Context, cred apiclient.Credentials, req models.SendMessageRequest) (models.ChatMessage, error)
	MarkRead(ctx context.Context, cred apiclient.Credentials, caseID string) error
	UnreadCounts(ctx context.Context, cred apiclient.Credentials) (models.UnreadCounts, error)
}

// AuditRecorder 审计记录（repository.AuditRepository 实现；未启用数据库时为 nil）
type AuditRecorder interface {
	Record(ctx context.Context, e *repository.AuditEvent) error
}

var (
	// ErrInvalidRequest 请求参数不合法
	ErrInvalidRequest = errors.New("invalid request")
)

// ClaimConflictError 认领被后端拒绝（另一位医生已认领）
// Case 为冲突后重新拉取的病例，包含当前认领人；重新拉取失败时为 nil。
type ClaimConflictError struct {
	CaseID  string
	Message string
	Case    *CaseView
}

func (e *ClaimConflictError) Error() string {
	return fmt.Sprintf("claim conflict on case %s: %s", e.CaseID, e.Message)
}

func (e *ClaimConflictError) Unwrap() error { return apiclient.ErrConflict }

// CurrentOwner 当前认领医生
func (e *ClaimConflictError) CurrentOwner() string {
	if e.Case == nil {
		return ""
	}
	return e.Case.DoctorID
}

// RejectedError 后端拒绝了本地门控已允许的操作（本地状态过期）
// Case 为拒绝后重新拉取的病例，用于让界面与后端状态一致。
type RejectedError struct {
	Err  error
	Case *CaseView
}

func (e *RejectedError) Error() string {
	return "backend rejected request: " + e.Err.Error()
}

func (e *RejectedError) Unwrap() error { return e.Err }

// isBackendRejection 后端明确拒绝（而非网络/服务故障）
func isBackendRejection(err error) bool {
	switch {
	case errors.Is(err, apiclient.ErrForbidden),
		errors.Is(err, apiclient.ErrConflict),
		errors.Is(err, apiclient.ErrNotFound):
		return true
	case errors.Is(err, apiclient.ErrRejected):
		code := apiclient.StatusCode(err)
		return code < 500
	default:
		return false
	}
}
