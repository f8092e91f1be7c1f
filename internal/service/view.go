package service

import (
	"time"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/models"
)

// DiagnosisMode 诊断表单模式
type DiagnosisMode string

const (
	DiagnosisNone   DiagnosisMode = ""       // 当前医生不能诊断
	DiagnosisSubmit DiagnosisMode = "submit" // 尚未提交
	DiagnosisUpdate DiagnosisMode = "update" // 已提交，仍在修改窗口内
	DiagnosisLocked DiagnosisMode = "locked" // 已提交，窗口已关闭或提交时间无效
)

// CaseView 带门控决策的病例视图，移动端/Web 端直接渲染
type CaseView struct {
	models.Case
	SLAStatus     caselogic.SLAStatus  `json:"slaStatus"`
	ClockSkew     bool                 `json:"clockSkew,omitempty"`
	WaitTime      string               `json:"waitTime"`
	Actions       caselogic.ActionSet  `json:"availableActions"`
	EditWindow    caselogic.EditWindow `json:"editWindow"`
	DiagnosisMode DiagnosisMode        `json:"diagnosisMode"`
}

// Can 是否允许某个操作
func (v CaseView) Can(a caselogic.Action) bool {
	return v.Actions.Has(a)
}

// Annotator 计算病例视图中的派生字段
type Annotator struct {
	slaTarget  time.Duration
	editPolicy caselogic.EditPolicy
	now        func() time.Time
}

// NewAnnotator 创建 Annotator
func NewAnnotator(slaTarget time.Duration, editPolicy caselogic.EditPolicy) *Annotator {
	return &Annotator{
		slaTarget:  slaTarget,
		editPolicy: editPolicy,
		now:        time.Now,
	}
}

// View 按当前时间计算视图；每次读取都重新计算，不缓存
func (a *Annotator) View(c models.Case, doctorID string) CaseView {
	return a.ViewAt(c, doctorID, a.now())
}

// ViewAt 按指定时间计算视图
func (a *Annotator) ViewAt(c models.Case, doctorID string, now time.Time) CaseView {
	v := CaseView{
		Case:      c,
		SLAStatus: caselogic.ClassifySLA(c.CreatedAt.Time, now, a.slaTarget),
		ClockSkew: caselogic.IsClockSkewed(c.CreatedAt.Time, now),
		Actions:   caselogic.AvailableActions(c.GateState(), doctorID),
		EditWindow: a.editPolicy.Evaluate(
			c.DiagnosisSubmittedAt.TimePtr(),
			c.DiagnosisUpdatedAt.TimePtr(),
			now,
		),
	}
	if c.CreatedAt.Valid() {
		v.WaitTime = caselogic.WaitTime(c.CreatedAt.Time, now)
	}
	v.DiagnosisMode = diagnosisMode(v)
	return v
}

func diagnosisMode(v CaseView) DiagnosisMode {
	if !v.Actions.Has(caselogic.ActionDiagnose) {
		return DiagnosisNone
	}
	w := v.EditWindow
	switch {
	case !w.Submitted:
		return DiagnosisSubmit
	case w.Known && w.Editable:
		return DiagnosisUpdate
	default:
		return DiagnosisLocked
	}
}

// SLAAtCompletion 以 completedAt 为参考时刻计算的 SLA（历史导出用）
func (a *Annotator) SLAAtCompletion(c models.Case) caselogic.SLAStatus {
	if c.CompletedAt == nil || !c.CompletedAt.Valid() {
		return caselogic.SLAUnknown
	}
	return caselogic.ClassifySLA(c.CreatedAt.Time, c.CompletedAt.Time, a.slaTarget)
}

// Views 批量计算视图
func (a *Annotator) Views(cases []models.Case, doctorID string) []CaseView {
	now := a.now()
	out := make([]CaseView, 0, len(cases))
	for _, c := range cases {
		out = append(out, a.ViewAt(c, doctorID, now))
	}
	return out
}
