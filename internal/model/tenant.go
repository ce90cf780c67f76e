package model

import "time"

// Tenant holds the scheduling-relevant settings of a tenant: timezone and the
// business-hours window reminders may be sent in.
type Tenant struct {
	Base
	Name              string     `db:"name" json:"name"`
	Timezone          string     `db:"timezone" json:"timezone"`
	BusinessHourStart int        `db:"business_hour_start" json:"business_hour_start"`
	BusinessHourEnd   int        `db:"business_hour_end" json:"business_hour_end"`
	WorkingDays       WeekdaySet `db:"working_days" json:"working_days"`
}

// Location resolves the tenant's IANA timezone.
func (t *Tenant) Location() (*time.Location, error) {
	return time.LoadLocation(t.Timezone)
}
