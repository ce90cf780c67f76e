package model

import (
	"time"

	"github.com/google/uuid"
)

// BucketID names an aging bucket. The set is fixed and ordered by severity.
type BucketID string

const (
	BucketNotDue        BucketID = "not_due"
	BucketOverdue1To3   BucketID = "overdue_1_3"
	BucketOverdue4To7   BucketID = "overdue_4_7"
	BucketOverdue8To14  BucketID = "overdue_8_14"
	BucketOverdue15To30 BucketID = "overdue_15_30"
	BucketOverdue30Plus BucketID = "overdue_30_plus"
)

// Buckets lists every sendable bucket (not_due is never configured).
var Buckets = []BucketID{
	BucketOverdue1To3,
	BucketOverdue4To7,
	BucketOverdue8To14,
	BucketOverdue15To30,
	BucketOverdue30Plus,
}

func (b BucketID) IsValid() bool {
	for _, known := range Buckets {
		if b == known {
			return true
		}
	}
	return false
}

// BucketConfig is the per-tenant, per-bucket scheduling state. LastAutoSendAt
// is the watermark; every write to it goes through the atomic claim.
type BucketConfig struct {
	Base
	TenantID        uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	BucketID        BucketID   `db:"bucket_id" json:"bucket_id"`
	AutoSendEnabled bool       `db:"auto_send_enabled" json:"auto_send_enabled"`
	TemplateID      uuid.UUID  `db:"template_id" json:"template_id"`
	SendHour        int        `db:"send_hour" json:"send_hour"`
	SendDays        WeekdaySet `db:"send_days" json:"send_days"`
	LastAutoSendAt  *time.Time `db:"last_auto_send_at" json:"last_auto_send_at,omitempty"`
	TotalRuns       int        `db:"total_runs" json:"total_runs"`
	TotalSent       int        `db:"total_sent" json:"total_sent"`
	TotalFailed     int        `db:"total_failed" json:"total_failed"`
}

type CreateBucketConfigRequest struct {
	TenantID        uuid.UUID `json:"tenant_id" binding:"required"`
	BucketID        string    `json:"bucket_id" binding:"required"`
	AutoSendEnabled bool      `json:"auto_send_enabled"`
	TemplateID      uuid.UUID `json:"template_id" binding:"required"`
	SendHour        int       `json:"send_hour" binding:"min=0,max=23"`
	SendDays        []int     `json:"send_days" binding:"required,min=1,dive,min=0,max=6"`
}

type UpdateBucketConfigRequest struct {
	AutoSendEnabled *bool      `json:"auto_send_enabled"`
	TemplateID      *uuid.UUID `json:"template_id"`
	SendHour        *int       `json:"send_hour" binding:"omitempty,min=0,max=23"`
	SendDays        []int      `json:"send_days" binding:"omitempty,min=1,dive,min=0,max=6"`
}
