package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/models"
	"doctor-portal/internal/repository"
	"doctor-portal/internal/session"

	"go.uber.org/zap"
)

// CaseService 医生病例工作流：列表、查看、认领、聊天、诊断
// 所有决策基于后端返回的最新病例计算；后端是认领与状态的最终裁决者。
type CaseService struct {
	backend      Backend
	audit        AuditRecorder
	annotator    *Annotator
	chatPolicy   caselogic.ChatClaimPolicy
	messageLimit int
	logger       *zap.Logger
}

// CaseServiceOptions 可选参数
type CaseServiceOptions struct {
	ChatPolicy   caselogic.ChatClaimPolicy
	MessageLimit int
	Audit        AuditRecorder
}

// NewCaseService 创建病例服务
func NewCaseService(backend Backend, annotator *Annotator, opts CaseServiceOptions, logger *zap.Logger) *CaseService {
	if opts.MessageLimit <= 0 {
		opts.MessageLimit = 50
	}
	return &CaseService{
		backend:      backend,
		audit:        opts.Audit,
		annotator:    annotator,
		chatPolicy:   caselogic.ParseChatClaimPolicy(string(opts.ChatPolicy)),
		messageLimit: opts.MessageLimit,
		logger:       logger,
	}
}

// ChatPolicy 当前生效的聊天认领策略
func (s *CaseService) ChatPolicy() caselogic.ChatClaimPolicy {
	return s.chatPolicy
}

func paginatedViews(p models.Paginated[models.Case], views []CaseView) models.Paginated[CaseView] {
	return models.Paginated[CaseView]{
		Data:       views,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

// Pending 待认领队列
func (s *CaseService) Pending(ctx context.Context, sess *session.Session, page, pageSize int) (models.Paginated[CaseView], error) {
	p, err := s.backend.PendingCases(ctx, sess.Credentials(), page, pageSize)
	if err != nil {
		return models.Paginated[CaseView]{}, fmt.Errorf("failed to list pending cases: %w", err)
	}
	return paginatedViews(p, s.annotator.Views(p.Data, sess.DoctorID)), nil
}

// MyCases 当前医生已认领的病例
func (s *CaseService) MyCases(ctx context.Context, sess *session.Session, params models.CaseListParams) (models.Paginated[CaseView], error) {
	p, err := s.backend.MyCases(ctx, sess.Credentials(), params)
	if err != nil {
		return models.Paginated[CaseView]{}, fmt.Errorf("failed to list my cases: %w", err)
	}
	return paginatedViews(p, s.annotator.Views(p.Data, sess.DoctorID)), nil
}

// History 已完成病例
func (s *CaseService) History(ctx context.Context, sess *session.Session, page, pageSize int) (models.Paginated[CaseView], error) {
	p, err := s.backend.CompletedCases(ctx, sess.Credentials(), page, pageSize)
	if err != nil {
		return models.Paginated[CaseView]{}, fmt.Errorf("failed to list case history: %w", err)
	}
	return paginatedViews(p, s.annotator.Views(p.Data, sess.DoctorID)), nil
}

// Get 单个病例视图
func (s *CaseService) Get(ctx context.Context, sess *session.Session, caseID string) (CaseView, error) {
	if caseID == "" {
		return CaseView{}, fmt.Errorf("%w: case id is required", ErrInvalidRequest)
	}
	c, err := s.backend.GetCase(ctx, sess.Credentials(), caseID)
	if err != nil {
		return CaseView{}, fmt.Errorf("failed to get case %s: %w", caseID, err)
	}
	return s.annotator.View(c, sess.DoctorID), nil
}

// reload 后端拒绝后重新拉取病例；失败只记录日志
func (s *CaseService) reload(ctx context.Context, sess *session.Session, caseID string) *CaseView {
	v, err := s.Get(ctx, sess, caseID)
	if err != nil {
		s.logger.Warn("Failed to refresh case after rejection",
			zap.String("case_id", caseID),
			zap.Error(err),
		)
		return nil
	}
	return &v
}

// Claim 认领病例
// 先按最新病例本地门控（已认领/非 Pending 返回 *caselogic.GateError，不发请求）；
// 成功：返回后端更新后的病例；冲突（并发认领）：重新拉取病例并返回 *ClaimConflictError（含当前认领人），不重试。
func (s *CaseService) Claim(ctx context.Context, sess *session.Session, caseID string) (CaseView, error) {
	return s.claim(ctx, sess, caseID, repository.AuditClaim, nil)
}

// claim current 为调用方刚拉取的病例视图，nil 时重新拉取
func (s *CaseService) claim(ctx context.Context, sess *session.Session, caseID string, action repository.AuditAction, current *CaseView) (CaseView, error) {
	if caseID == "" {
		return CaseView{}, fmt.Errorf("%w: case id is required", ErrInvalidRequest)
	}

	if current == nil {
		view, err := s.Get(ctx, sess, caseID)
		if err != nil {
			return CaseView{}, err
		}
		current = &view
	}
	if err := caselogic.CheckAction(current.GateState(), sess.DoctorID, caselogic.ActionClaim); err != nil {
		var gateErr *caselogic.GateError
		if errors.As(err, &gateErr) {
			s.record(ctx, sess, caseID, action, repository.OutcomeRejected, current.DoctorID,
				map[string]interface{}{"message": gateErr.Reason})
		}
		return CaseView{}, err
	}

	c, err := s.backend.ClaimCase(ctx, sess.Credentials(), caseID)
	if err == nil {
		s.record(ctx, sess, caseID, action, repository.OutcomeSuccess, "", nil)
		s.logger.Info("Case claimed",
			zap.String("case_id", caseID),
			zap.String("doctor_id", sess.DoctorID),
		)
		return s.annotator.View(c, sess.DoctorID), nil
	}

	if errors.Is(err, apiclient.ErrConflict) {
		conflict := &ClaimConflictError{
			CaseID:  caseID,
			Message: apiclient.UserMessage(err),
			Case:    s.reload(ctx, sess, caseID),
		}
		s.record(ctx, sess, caseID, action, repository.OutcomeConflict, conflict.CurrentOwner(),
			map[string]interface{}{"message": conflict.Message})
		s.logger.Info("Claim rejected, case held by another doctor",
			zap.String("case_id", caseID),
			zap.String("doctor_id", sess.DoctorID),
			zap.String("current_owner", conflict.CurrentOwner()),
		)
		return CaseView{}, conflict
	}

	outcome := repository.OutcomeError
	if isBackendRejection(err) {
		outcome = repository.OutcomeRejected
	}
	s.record(ctx, sess, caseID, action, outcome, "", map[string]interface{}{"message": apiclient.UserMessage(err)})
	return CaseView{}, fmt.Errorf("failed to claim case %s: %w", caseID, err)
}

// ChatView 打开聊天的结果
type ChatView struct {
	Case     CaseView             `json:"case"`
	Messages []models.ChatMessage `json:"messages"`
	HasMore  bool                 `json:"hasMore"`
	// ClaimRequired 需要先认领才能发送消息（prompt 策略或自动认领失败）
	ClaimRequired bool `json:"claimRequired"`
	// AutoClaimed 本次打开聊天时自动认领成功
	AutoClaimed bool `json:"autoClaimed,omitempty"`
	// ClaimError 自动认领失败原因
	ClaimError string `json:"claimError,omitempty"`
}

// OpenChat 打开病例聊天
// auto 策略：未认领的 Pending 病例先发起认领，失败时保留只读视图并返回失败原因；
// prompt 策略：返回 ClaimRequired，由用户决定是否认领。
func (s *CaseService) OpenChat(ctx context.Context, sess *session.Session, caseID string) (ChatView, error) {
	view, err := s.Get(ctx, sess, caseID)
	if err != nil {
		return ChatView{}, err
	}

	out := ChatView{Messages: []models.ChatMessage{}}
	plan := caselogic.PlanChatOpen(view.GateState(), sess.DoctorID, s.chatPolicy)
	if plan.AutoClaim {
		claimed, err := s.claim(ctx, sess, caseID, repository.AuditChatAutoClaim, &view)
		switch {
		case err == nil:
			view = claimed
			out.AutoClaimed = true
		default:
			var conflict *ClaimConflictError
			if errors.As(err, &conflict) && conflict.Case != nil {
				view = *conflict.Case
			}
			out.ClaimError = apiclient.UserMessage(err)
		}
	}

	out.Case = view
	if !view.Can(caselogic.ActionChat) {
		out.ClaimRequired = view.Status == caselogic.StatusPending && !view.GateState().Claimed()
		return out, nil
	}

	msgs, err := s.backend.Messages(ctx, sess.Credentials(), caseID, s.messageLimit)
	if err != nil {
		return ChatView{}, fmt.Errorf("failed to load messages for case %s: %w", caseID, err)
	}
	for i := range msgs.Messages {
		msgs.Messages[i].IsOwnMessage = msgs.Messages[i].SenderID == sess.DoctorID
	}
	if msgs.Messages != nil {
		out.Messages = msgs.Messages
	}
	out.HasMore = msgs.HasMore
	return out, nil
}

// SendMessage 发送消息；病例未认领时返回 *caselogic.GateError（"claim this case first"）
func (s *CaseService) SendMessage(ctx context.Context, sess *session.Session, caseID string, req models.SendMessageRequest) (models.ChatMessage, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" && req.AttachmentURL == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: message is empty", ErrInvalidRequest)
	}

	view, err := s.Get(ctx, sess, caseID)
	if err != nil {
		return models.ChatMessage{}, err
	}
	if err := caselogic.CheckAction(view.GateState(), sess.DoctorID, caselogic.ActionChat); err != nil {
		return models.ChatMessage{}, err
	}

	req.CaseID = caseID
	msg, err := s.backend.SendMessage(ctx, sess.Credentials(), req)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to send message: %w", err)
	}
	msg.IsOwnMessage = true
	return msg, nil
}

// MarkRead 标记病例消息已读
func (s *CaseService) MarkRead(ctx context.Context, sess *session.Session, caseID string) error {
	if caseID == "" {
		return fmt.Errorf("%w: case id is required", ErrInvalidRequest)
	}
	if err := s.backend.MarkRead(ctx, sess.Credentials(), caseID); err != nil {
		return fmt.Errorf("failed to mark case %s read: %w", caseID, err)
	}
	return nil
}

// SubmitDiagnosis 提交或修改诊断
// 本地先按最新病例门控（Diagnose 权限、修改窗口），药品分类按药名重新计算；
// 后端拒绝时重新拉取病例，通过 *RejectedError 返回。
func (s *CaseService) SubmitDiagnosis(ctx context.Context, sess *session.Session, caseID string, req models.SubmitDiagnosisRequest) (CaseView, error) {
	req.Diagnosis = strings.TrimSpace(req.Diagnosis)
	if req.Diagnosis == "" {
		return CaseView{}, fmt.Errorf("%w: diagnosis is required", ErrInvalidRequest)
	}
	for i, m := range req.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return CaseView{}, fmt.Errorf("%w: medication %d has no name", ErrInvalidRequest, i+1)
		}
	}

	view, err := s.Get(ctx, sess, caseID)
	if err != nil {
		return CaseView{}, err
	}
	if err := caselogic.CheckAction(view.GateState(), sess.DoctorID, caselogic.ActionDiagnose); err != nil {
		return CaseView{}, err
	}
	if view.DiagnosisMode == DiagnosisLocked {
		return CaseView{}, &caselogic.GateError{Action: caselogic.ActionDiagnose, Reason: caselogic.ReasonEditWindowClosed}
	}

	action := repository.AuditDiagnosisCreate
	if view.DiagnosisMode == DiagnosisUpdate {
		action = repository.AuditDiagnosisUpdate
	}

	req.CaseID = caseID
	controlled := 0
	for i := range req.Medications {
		req.Medications[i].Classify()
		if req.Medications[i].DrugType == caselogic.DrugControlled {
			controlled++
		}
	}
	detail := map[string]interface{}{
		"medications": len(req.Medications),
		"controlled":  controlled,
	}

	c, err := s.backend.SubmitDiagnosis(ctx, sess.Credentials(), req)
	if err != nil {
		if isBackendRejection(err) {
			detail["message"] = apiclient.UserMessage(err)
			s.record(ctx, sess, caseID, action, repository.OutcomeRejected, "", detail)
			return CaseView{}, &RejectedError{Err: err, Case: s.reload(ctx, sess, caseID)}
		}
		s.record(ctx, sess, caseID, action, repository.OutcomeError, "", detail)
		return CaseView{}, fmt.Errorf("failed to submit diagnosis for case %s: %w", caseID, err)
	}

	s.record(ctx, sess, caseID, action, repository.OutcomeSuccess, "", detail)
	s.logger.Info("Diagnosis submitted",
		zap.String("case_id", caseID),
		zap.String("doctor_id", sess.DoctorID),
		zap.String("mode", string(view.DiagnosisMode)),
		zap.Int("medications", len(req.Medications)),
	)
	return s.annotator.View(c, sess.DoctorID), nil
}

func (s *CaseService) record(ctx context.Context, sess *session.Session, caseID string, action repository.AuditAction, outcome repository.AuditOutcome, owner string, detail map[string]interface{}) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, &repository.AuditEvent{
		SessionID: sess.ID,
		DoctorID:  sess.DoctorID,
		CaseID:    caseID,
		Action:    action,
		Outcome:   outcome,
		OwnerID:   owner,
		Detail:    detail,
	})
	if err != nil {
		// 审计失败不影响业务结果
		s.logger.Error("Failed to record audit event",
			zap.String("case_id", caseID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}
