package caselogic

import (
	"math"
	"time"
)

// DiagnosisEditWindow 诊断提交后允许修改的时长（固定策略，不按病例配置）
const DiagnosisEditWindow = 30 * time.Minute

// EditWindow 诊断修改窗口
type EditWindow struct {
	// Known=false 表示提交时间无效，无法判断（前端展示为中性状态）
	Known            bool       `json:"known"`
	Submitted        bool       `json:"submitted"`
	Editable         bool       `json:"editable"`
	MinutesRemaining int        `json:"minutesRemaining"`
	ClosesAt         *time.Time `json:"closesAt,omitempty"`
}

// CanEdit 计算诊断是否仍可修改
// submittedAt == nil 表示尚未提交（创建路径，不是修改），不可编辑。
// minutesRemaining = max(0, ceil(30 - minutesSince))
func CanEdit(submittedAt *time.Time, now time.Time) EditWindow {
	if submittedAt == nil {
		return EditWindow{Known: true}
	}
	if submittedAt.IsZero() {
		return EditWindow{Submitted: true}
	}

	since := now.Sub(*submittedAt)
	closesAt := submittedAt.Add(DiagnosisEditWindow)
	w := EditWindow{
		Known:     true,
		Submitted: true,
		Editable:  since <= DiagnosisEditWindow,
		ClosesAt:  &closesAt,
	}
	if left := DiagnosisEditWindow - since; left > 0 {
		w.MinutesRemaining = int(math.Ceil(left.Minutes()))
	}
	return w
}

// EditPolicy 修改窗口策略
// RenewOnUpdate=false（默认）：窗口始终从首次提交开始计算，中途修改不会续期。
// RenewOnUpdate=true：有 updatedAt 时从最近一次修改开始计算。
type EditPolicy struct {
	RenewOnUpdate bool
}

// Evaluate 按策略选择锚点时间后计算窗口
func (p EditPolicy) Evaluate(submittedAt, updatedAt *time.Time, now time.Time) EditWindow {
	anchor := submittedAt
	if p.RenewOnUpdate && submittedAt != nil && updatedAt != nil && updatedAt.After(*submittedAt) {
		anchor = updatedAt
	}
	return CanEdit(anchor, now)
}
