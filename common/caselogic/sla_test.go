package caselogic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifySLA_DefaultTarget(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    SLAStatus
	}{
		{"just created", 0, SLAOnTrack},
		{"10 minutes", 10 * time.Minute, SLAOnTrack},
		{"exactly 21 minutes", 21 * time.Minute, SLAOnTrack},
		{"21.01 minutes", 21*time.Minute + 600*time.Millisecond, SLAAtRisk},
		{"25 minutes", 25 * time.Minute, SLAAtRisk},
		{"exactly 30 minutes", 30 * time.Minute, SLAAtRisk},
		{"30 minutes and 1 second", 30*time.Minute + time.Second, SLABreached},
		{"3 hours", 3 * time.Hour, SLABreached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySLA(now.Add(-tt.elapsed), now, DefaultSLATarget)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifySLA_FarTimestamps(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		createdAt time.Time
		want      SLAStatus
	}{
		{"unix epoch", time.Unix(0, 0).UTC(), SLABreached},
		{"1990", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), SLABreached},
		{"year 1", time.Date(1, 1, 1, 0, 0, 1, 0, time.UTC), SLABreached},
		{"2060 clock skew", time.Date(2060, 1, 1, 0, 0, 0, 0, time.UTC), SLAOnTrack},
		{"9999 clock skew", time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), SLAOnTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySLA(tt.createdAt, now, DefaultSLATarget))
		})
	}
}

func TestClassifySLA_CustomTarget(t *testing.T) {
	now := time.Now()
	target := 60 * time.Minute

	assert.Equal(t, SLAOnTrack, ClassifySLA(now.Add(-42*time.Minute), now, target))
	assert.Equal(t, SLAAtRisk, ClassifySLA(now.Add(-43*time.Minute), now, target))
	assert.Equal(t, SLABreached, ClassifySLA(now.Add(-61*time.Minute), now, target))
}

func TestClassifySLA_NonPositiveTargetFallsBackToDefault(t *testing.T) {
	now := time.Now()
	assert.Equal(t, SLAAtRisk, ClassifySLA(now.Add(-25*time.Minute), now, 0))
	assert.Equal(t, SLABreached, ClassifySLA(now.Add(-31*time.Minute), now, -time.Minute))
}

func TestClassifySLA_ZeroCreatedAtIsUnknown(t *testing.T) {
	assert.Equal(t, SLAUnknown, ClassifySLA(time.Time{}, time.Now(), DefaultSLATarget))
}

func TestClassifySLA_FutureCreatedAt(t *testing.T) {
	now := time.Now()
	createdAt := now.Add(5 * time.Minute)

	assert.Equal(t, SLAOnTrack, ClassifySLA(createdAt, now, DefaultSLATarget))
	assert.True(t, IsClockSkewed(createdAt, now))
	assert.False(t, IsClockSkewed(now.Add(-time.Minute), now))
	assert.False(t, IsClockSkewed(time.Time{}, now))
}

func TestClassifySLA_Idempotent(t *testing.T) {
	now := time.Now()
	createdAt := now.Add(-27 * time.Minute)
	first := ClassifySLA(createdAt, now, DefaultSLATarget)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ClassifySLA(createdAt, now, DefaultSLATarget))
	}
}

func TestSLABreakdown_Add(t *testing.T) {
	var b SLABreakdown
	for _, s := range []SLAStatus{SLAOnTrack, SLAOnTrack, SLAAtRisk, SLABreached, SLAUnknown} {
		b.Add(s)
	}
	assert.Equal(t, SLABreakdown{Total: 5, OnTrack: 2, AtRisk: 1, Breached: 1, Unknown: 1}, b)
}
