package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/dunning-api/internal/model"
)

func TestClassifyBoundaries(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		daysOverdue int
		want        model.BucketID
	}{
		{-5, model.BucketNotDue},
		{-1, model.BucketNotDue},
		{0, model.BucketNotDue},
		{1, model.BucketOverdue1To3},
		{3, model.BucketOverdue1To3},
		{4, model.BucketOverdue4To7},
		{7, model.BucketOverdue4To7},
		{8, model.BucketOverdue8To14},
		{14, model.BucketOverdue8To14},
		{15, model.BucketOverdue15To30},
		{30, model.BucketOverdue15To30},
		{31, model.BucketOverdue30Plus},
		{365, model.BucketOverdue30Plus},
	}

	for _, tt := range tests {
		due := now.Add(-time.Duration(tt.daysOverdue) * 24 * time.Hour)
		got := Classify(due, now)
		assert.Equal(t, tt.want, got, "daysOverdue=%d", tt.daysOverdue)
	}
}

func TestClassifyReturnsExactlyOneBucket(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	for days := -10; days <= 100; days++ {
		due := now.Add(-time.Duration(days) * 24 * time.Hour)
		got := Classify(due, now)
		assert.True(t, got == model.BucketNotDue || got.IsValid(), "daysOverdue=%d produced %q", days, got)
	}
}

func TestDaysOverdueFloorsPartialDays(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	// 47 hours past due is still 1 day.
	due := now.Add(-47 * time.Hour)
	assert.Equal(t, 1, DaysOverdue(due, now))

	// 49 hours is 2 days.
	due = now.Add(-49 * time.Hour)
	assert.Equal(t, 2, DaysOverdue(due, now))

	// 12 hours before due is -1, not 0.
	due = now.Add(12 * time.Hour)
	assert.Equal(t, -1, DaysOverdue(due, now))
}
