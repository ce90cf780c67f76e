package reminder

import (
	"math"
	"time"

	"github.com/jwalitptl/dunning-api/internal/model"
)

type bucketRange struct {
	id  model.BucketID
	min int
	max int // inclusive; -1 means open-ended
}

// Ordered by severity. The final bucket is open-ended above its minimum.
var bucketRanges = []bucketRange{
	{model.BucketOverdue1To3, 1, 3},
	{model.BucketOverdue4To7, 4, 7},
	{model.BucketOverdue8To14, 8, 14},
	{model.BucketOverdue15To30, 15, 30},
	{model.BucketOverdue30Plus, 31, -1},
}

// DaysOverdue returns floor((now - dueDate) / 24h). Negative when the invoice
// is not yet due.
func DaysOverdue(dueDate, now time.Time) int {
	return int(math.Floor(now.Sub(dueDate).Hours() / 24))
}

// Classify maps an invoice due date and the current time to exactly one
// bucket. An invoice less than one full day past due is not_due: the first
// overdue bucket starts at day 1.
func Classify(dueDate, now time.Time) model.BucketID {
	days := DaysOverdue(dueDate, now)
	if days < 1 {
		return model.BucketNotDue
	}
	for _, r := range bucketRanges {
		if days >= r.min && (r.max < 0 || days <= r.max) {
			return r.id
		}
	}
	// Unreachable: the last range is open-ended.
	return model.BucketOverdue30Plus
}
