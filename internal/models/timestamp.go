package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// 后端时间字段可能出现的格式（带/不带时区）
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp 容错的时间字段
// 无法解析的值不会导致整个病例解码失败，而是得到零值（Valid() == false），
// 由门控函数按"无法判断"处理。
type Timestamp struct {
	time.Time
}

// NewTimestamp 包装 time.Time
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

// TimestampPtr 返回指针，便于构造可空字段
func TimestampPtr(t time.Time) *Timestamp {
	ts := NewTimestamp(t)
	return &ts
}

// Valid 是否为有效时间
func (t Timestamp) Valid() bool { return !t.IsZero() }

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parseTimestamp(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v
		}
	}
	return time.Time{}
}

// TimePtr 可空字段转换为 *time.Time：nil 保持 nil，无效值返回零值指针
func (t *Timestamp) TimePtr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}
