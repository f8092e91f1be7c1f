package caselogic

import (
	"encoding/json"
	"fmt"
)

// CaseStatus 病例生命周期状态（以后端为准，客户端只读）
type CaseStatus string

const (
	StatusPending        CaseStatus = "Pending"
	StatusAwaitingDoctor CaseStatus = "AwaitingDoctor"
	StatusInReview       CaseStatus = "InReview"
	StatusCompleted      CaseStatus = "Completed"
	StatusCancelled      CaseStatus = "Cancelled"
)

// Closed 已完成或已取消
func (s CaseStatus) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Action 病例上的可用操作
type Action string

const (
	ActionView     Action = "View"
	ActionClaim    Action = "Claim"
	ActionChat     Action = "Chat"
	ActionDiagnose Action = "Diagnose"
)

var allActions = []Action{ActionView, ActionClaim, ActionChat, ActionDiagnose}

// ActionSet 操作集合（位图）
type ActionSet uint8

func actionBit(a Action) ActionSet {
	for i, x := range allActions {
		if x == a {
			return 1 << uint(i)
		}
	}
	return 0
}

func (s ActionSet) with(a Action) ActionSet { return s | actionBit(a) }

// Has 是否包含操作
func (s ActionSet) Has(a Action) bool {
	b := actionBit(a)
	return b != 0 && s&b != 0
}

// List 按固定顺序返回操作列表
func (s ActionSet) List() []Action {
	out := make([]Action, 0, len(allActions))
	for _, a := range allActions {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s ActionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// CaseState 门控需要的病例字段
type CaseState struct {
	Status   CaseStatus
	DoctorID string // 空字符串表示未认领
}

// Claimed 是否已被认领
func (c CaseState) Claimed() bool { return c.DoctorID != "" }

// AvailableActions 计算当前医生可执行的操作
// - View：始终可用
// - Claim：status == Pending 且未认领
// - Chat：已认领
// - Diagnose：认领人是当前医生，且病例未完成/未取消
// 认领只是客户端观察到的建议性互斥，真正的互斥由后端保证。
func AvailableActions(c CaseState, currentDoctorID string) ActionSet {
	set := ActionSet(0).with(ActionView)
	if c.Status == StatusPending && !c.Claimed() {
		set = set.with(ActionClaim)
	}
	if c.Claimed() {
		set = set.with(ActionChat)
	}
	if currentDoctorID != "" && c.DoctorID == currentDoctorID && !c.Status.Closed() {
		set = set.with(ActionDiagnose)
	}
	return set
}

// GateError 在门控窗口外尝试操作
type GateError struct {
	Action Action
	Reason string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s not allowed: %s", e.Action, e.Reason)
}

// 门控拒绝原因（直接展示给用户）
const (
	ReasonClaimFirst       = "claim this case first"
	ReasonAlreadyClaimed   = "case is already claimed"
	ReasonHeldByYou        = "you already hold this case"
	ReasonNotPending       = "case is not pending"
	ReasonOtherDoctor      = "case is assigned to another doctor"
	ReasonCaseClosed       = "case is closed"
	ReasonUnknownAction    = "unknown action"
	ReasonNotClaimable     = "case is not open for claiming"
	ReasonMissingIdentity  = "doctor identity is required"
	ReasonEditWindowClosed = "diagnosis edit window has closed"
)

// CheckAction 校验操作；允许时返回 nil，否则返回带可操作提示的 *GateError
func CheckAction(c CaseState, currentDoctorID string, a Action) error {
	if AvailableActions(c, currentDoctorID).Has(a) {
		return nil
	}
	return &GateError{Action: a, Reason: denyReason(c, currentDoctorID, a)}
}

func denyReason(c CaseState, currentDoctorID string, a Action) string {
	switch a {
	case ActionClaim:
		switch {
		case c.Claimed() && c.DoctorID == currentDoctorID:
			return ReasonHeldByYou
		case c.Claimed():
			return ReasonAlreadyClaimed
		default:
			return ReasonNotPending
		}
	case ActionChat:
		if c.Status == StatusPending {
			return ReasonClaimFirst
		}
		return ReasonNotClaimable
	case ActionDiagnose:
		switch {
		case currentDoctorID == "":
			return ReasonMissingIdentity
		case c.Status.Closed():
			return ReasonCaseClosed
		case !c.Claimed() && c.Status == StatusPending:
			return ReasonClaimFirst
		case !c.Claimed():
			return ReasonNotClaimable
		default:
			return ReasonOtherDoctor
		}
	default:
		return ReasonUnknownAction
	}
}

// ChatClaimPolicy 打开聊天时对未认领病例的处理方式
// 移动端打开聊天时自动认领，Web 端在发送前提示先认领，两种行为都保留，由配置显式选择。
type ChatClaimPolicy string

const (
	ChatClaimAuto   ChatClaimPolicy = "auto"
	ChatClaimPrompt ChatClaimPolicy = "prompt"
)

// ParseChatClaimPolicy 解析配置值，未知值返回 prompt（不做隐式认领）
func ParseChatClaimPolicy(s string) ChatClaimPolicy {
	if ChatClaimPolicy(s) == ChatClaimAuto {
		return ChatClaimAuto
	}
	return ChatClaimPrompt
}

// ChatOpenPlan 打开聊天前的决策
type ChatOpenPlan struct {
	// AutoClaim 需要先发起认领请求（结果仍以后端为准）
	AutoClaim bool
	// ClaimRequired 需要提示用户先认领，发送消息会被拒绝
	ClaimRequired bool
}

// PlanChatOpen 根据策略决定打开聊天时的处理
func PlanChatOpen(c CaseState, currentDoctorID string, policy ChatClaimPolicy) ChatOpenPlan {
	if c.Claimed() {
		return ChatOpenPlan{}
	}
	claimable := AvailableActions(c, currentDoctorID).Has(ActionClaim)
	if policy == ChatClaimAuto && claimable {
		return ChatOpenPlan{AutoClaim: true}
	}
	return ChatOpenPlan{ClaimRequired: true}
}
