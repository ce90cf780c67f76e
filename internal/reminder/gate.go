package reminder

import (
	"time"

	"github.com/jwalitptl/dunning-api/internal/model"
)

type GateReason string

const (
	GateReasonTooSoon              GateReason = "too_soon"
	GateReasonOutsideBusinessHours GateReason = "outside_business_hours"
	GateReasonNonWorkingDay        GateReason = "non_working_day"
)

// GateInput carries everything the contact gate needs. Now must already be in
// the tenant's timezone; the gate itself reads and writes nothing.
type GateInput struct {
	Now                    time.Time
	LastContactedAt        *time.Time
	MinContactIntervalDays int
	BusinessHourStart      int
	BusinessHourEnd        int
	WorkingDays            model.WeekdaySet
}

type GateResult struct {
	Eligible bool
	Reason   GateReason
}

// EvaluateGate decides whether a customer may be contacted right now. The
// minimum-interval check wins over the window checks so "too_soon" is always
// the reported reason for recently contacted customers.
func EvaluateGate(in GateInput) GateResult {
	if in.LastContactedAt != nil && in.MinContactIntervalDays > 0 {
		elapsed := in.Now.Sub(*in.LastContactedAt)
		if elapsed < time.Duration(in.MinContactIntervalDays)*24*time.Hour {
			return GateResult{Eligible: false, Reason: GateReasonTooSoon}
		}
	}

	hour := in.Now.Hour()
	if hour < in.BusinessHourStart || hour >= in.BusinessHourEnd {
		return GateResult{Eligible: false, Reason: GateReasonOutsideBusinessHours}
	}

	if len(in.WorkingDays) > 0 && !in.WorkingDays.Contains(in.Now.Weekday()) {
		return GateResult{Eligible: false, Reason: GateReasonNonWorkingDay}
	}

	return GateResult{Eligible: true}
}
