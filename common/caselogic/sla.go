package caselogic

import "time"

// SLAStatus 病例响应时效状态
type SLAStatus string

const (
	SLAOnTrack  SLAStatus = "OnTrack"
	SLAAtRisk   SLAStatus = "AtRisk"
	SLABreached SLAStatus = "Breached"
	// SLAUnknown createdAt 缺失或无效时返回（中性状态，不能当作 OnTrack 展示）
	SLAUnknown SLAStatus = "Unknown"
)

// DefaultSLATarget 默认响应目标 30 分钟
const DefaultSLATarget = 30 * time.Minute

// 预警阈值：已用时间超过目标的 70% 即为 AtRisk（以 7/10 整数比计算，避免浮点边界误差）
const (
	riskRatioNum = 7
	riskRatioDen = 10
)

// ClassifySLA 根据等待时间计算 SLA 状态
// - elapsed <= 70% target  → OnTrack（边界值归入较低级别）
// - elapsed <= target      → AtRisk
// - 其他                    → Breached
// createdAt 为零值时返回 SLAUnknown；target <= 0 时使用 DefaultSLATarget。
// createdAt 晚于 now（时钟偏差）时 elapsed 为负，按公式归为 OnTrack，可用 IsClockSkewed 判断。
func ClassifySLA(createdAt, now time.Time, target time.Duration) SLAStatus {
	if createdAt.IsZero() {
		return SLAUnknown
	}
	if target <= 0 {
		target = DefaultSLATarget
	}

	// now.Sub 在超出范围时饱和为 ±maxDuration，比例比较只在 (0, target] 内进行，避免乘法溢出
	elapsed := now.Sub(createdAt)
	switch {
	case elapsed > target:
		return SLABreached
	case elapsed <= 0:
		return SLAOnTrack
	case elapsed*riskRatioDen <= target*riskRatioNum:
		return SLAOnTrack
	default:
		return SLAAtRisk
	}
}

// IsClockSkewed createdAt 在 now 之后
func IsClockSkewed(createdAt, now time.Time) bool {
	return !createdAt.IsZero() && createdAt.After(now)
}

// SLABreakdown 一组病例的 SLA 分布
type SLABreakdown struct {
	Total    int `json:"total"`
	OnTrack  int `json:"onTrack"`
	AtRisk   int `json:"atRisk"`
	Breached int `json:"breached"`
	Unknown  int `json:"unknown"`
}

// Add 计入一个状态
func (b *SLABreakdown) Add(s SLAStatus) {
	b.Total++
	switch s {
	case SLAOnTrack:
		b.OnTrack++
	case SLAAtRisk:
		b.AtRisk++
	case SLABreached:
		b.Breached++
	default:
		b.Unknown++
	}
}
