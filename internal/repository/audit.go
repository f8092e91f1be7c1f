package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditAction 审计动作
type AuditAction string

const (
	AuditClaim           AuditAction = "claim"
	AuditDiagnosisCreate AuditAction = "diagnosis_create"
	AuditDiagnosisUpdate AuditAction = "diagnosis_update"
	AuditChatAutoClaim   AuditAction = "chat_auto_claim"
)

// AuditOutcome 审计结果
type AuditOutcome string

const (
	OutcomeSuccess  AuditOutcome = "success"
	OutcomeConflict AuditOutcome = "conflict"
	OutcomeRejected AuditOutcome = "rejected"
	OutcomeError    AuditOutcome = "error"
)

// AuditEvent 一条认领/诊断审计记录
type AuditEvent struct {
	EventID    string                 `json:"eventId"`
	SessionID  string                 `json:"sessionId"`
	DoctorID   string                 `json:"doctorId"`
	CaseID     string                 `json:"caseId"`
	Action     AuditAction            `json:"action"`
	Outcome    AuditOutcome           `json:"outcome"`
	OwnerID    string                 `json:"ownerId,omitempty"` // 冲突时病例当前的认领医生
	Detail     map[string]interface{} `json:"detail,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS portal_audit_events (
	event_id    UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	doctor_id   TEXT NOT NULL,
	case_id     TEXT NOT NULL,
	action      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	owner_id    TEXT,
	detail      JSONB NOT NULL DEFAULT '{}'::jsonb,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_portal_audit_events_case ON portal_audit_events (case_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_portal_audit_events_doctor ON portal_audit_events (doctor_id, occurred_at DESC);
`

// AuditRepository 审计日志仓库（Postgres）
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository 创建审计仓库
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema 建表（幂等）
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("failed to create portal_audit_events: %w", err)
	}
	return nil
}

// Record 写入一条审计记录；EventID/OccurredAt 为空时自动生成
func (r *AuditRepository) Record(ctx context.Context, e *AuditEvent) error {
	if e.DoctorID == "" {
		return fmt.Errorf("doctor_id is required")
	}
	if e.CaseID == "" {
		return fmt.Errorf("case_id is required")
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	detail := []byte("{}")
	if len(e.Detail) > 0 {
		raw, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal audit detail: %w", err)
		}
		detail = raw
	}

	query := `
		INSERT INTO portal_audit_events (
			event_id, session_id, doctor_id, case_id, action, outcome, owner_id, detail, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.EventID, e.SessionID, e.DoctorID, e.CaseID,
		string(e.Action), string(e.Outcome), e.OwnerID, detail, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	r.logger.Debug("Audit event recorded",
		zap.String("event_id", e.EventID),
		zap.String("case_id", e.CaseID),
		zap.String("action", string(e.Action)),
		zap.String("outcome", string(e.Outcome)),
	)
	return nil
}

// ListByCase 按时间倒序列出病例的审计记录
func (r *AuditRepository) ListByCase(ctx context.Context, caseID string, limit int) ([]AuditEvent, error) {
	if caseID == "" {
		return nil, fmt.Errorf("case_id is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT event_id, session_id, doctor_id, case_id, action, outcome,
		       COALESCE(owner_id, ''), detail, occurred_at
		FROM portal_audit_events
		WHERE case_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, caseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			e      AuditEvent
			action string
			result string
			detail []byte
		)
		if err := rows.Scan(&e.EventID, &e.SessionID, &e.DoctorID, &e.CaseID,
			&action, &result, &e.OwnerID, &detail, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Action = AuditAction(action)
		e.Outcome = AuditOutcome(result)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				r.logger.Warn("Failed to parse audit detail",
					zap.String("event_id", e.EventID),
					zap.Error(err),
				)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}
	return events, nil
}
