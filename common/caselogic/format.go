package caselogic

import (
	"fmt"
	"time"
)

// FormatDuration 将分钟数格式化为 "45m" / "2h 5m" / "3d 4h" / "2w 1d"
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return withRemainder(hours, "h", minutes%60, "m")
	}
	days := hours / 24
	if days < 7 {
		return withRemainder(days, "d", hours%24, "h")
	}
	return withRemainder(days/7, "w", days%7, "d")
}

func withRemainder(major int, majorUnit string, minor int, minorUnit string) string {
	if minor > 0 {
		return fmt.Sprintf("%d%s %d%s", major, majorUnit, minor, minorUnit)
	}
	return fmt.Sprintf("%d%s", major, majorUnit)
}

// WaitTime 病例等待时间（四舍五入到分钟）
func WaitTime(createdAt, now time.Time) string {
	if createdAt.IsZero() {
		return ""
	}
	return FormatDuration(int(now.Sub(createdAt).Round(time.Minute) / time.Minute))
}

// FormatRelativeTime "Just now" / "5m ago" / "3h ago" / "Yesterday" / "4d ago" / 日期
func FormatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	mins := int(now.Sub(t) / time.Minute)
	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	switch {
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("Jan 2, 2006")
}
