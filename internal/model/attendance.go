package model

import "time"

// DailyWorkRecord aggregates an engineer's worked minutes for one calendar
// date. Upserted by the attendance tracker, never deleted.
type DailyWorkRecord struct {
	ID               uint64     `gorm:"primaryKey" json:"id"`
	EngineerID       uint64     `gorm:"uniqueIndex:idx_daily_engineer_date;not null" json:"engineer_id"`
	WorkDate         string     `gorm:"type:varchar(10);uniqueIndex:idx_daily_engineer_date;not null" json:"work_date"`
	FirstCheckIn     *time.Time `json:"first_check_in,omitempty"`
	LastCheckOut     *time.Time `json:"last_check_out,omitempty"`
	TotalWorkMinutes int        `gorm:"not null;default:0" json:"total_work_minutes"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// WorkDateOf formats t as the daily-record key (calendar date, local time of t).
func WorkDateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameWorkDate reports whether a and b fall on the same calendar date.
func SameWorkDate(a, b time.Time) bool {
	return WorkDateOf(a) == WorkDateOf(b)
}
