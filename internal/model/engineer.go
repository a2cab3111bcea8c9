package model

import "time"

type Availability string

const (
	AvailabilityFree Availability = "free"
	AvailabilityBusy Availability = "busy"
)

// Engineer rows are maintained by the identity collaborator; this service
// reads them for assignment and attendance.
type Engineer struct {
	ID     uint64 `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"type:varchar(255);not null" json:"name"`
	Email  string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Role   Role   `gorm:"type:varchar(32);index;not null" json:"role"`
	Active bool   `gorm:"index;not null;default:true" json:"active"`
}

// EngineerStatus is the per-engineer registry row shared by the ticket
// lifecycle (availability flips) and the attendance tracker (check-in state).
// The daily_* fields reset on the first check-in of a new calendar day.
type EngineerStatus struct {
	EngineerID            uint64       `gorm:"primaryKey" json:"engineer_id"`
	Availability          Availability `gorm:"type:varchar(16);index;not null;default:free" json:"availability"`
	IsCheckedIn           bool         `gorm:"not null;default:false" json:"is_checked_in"`
	LastCheckIn           *time.Time   `json:"last_check_in,omitempty"`
	LastCheckOut          *time.Time   `json:"last_check_out,omitempty"`
	DailyFirstCheckIn     *time.Time   `json:"daily_first_check_in,omitempty"`
	DailyLastCheckOut     *time.Time   `json:"daily_last_check_out,omitempty"`
	DailyTotalWorkMinutes int          `gorm:"not null;default:0" json:"daily_total_work_minutes"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
	ProficiencyExpert       Proficiency = "expert"
)

// Skill is scoring input only; rows are maintained by an external collaborator.
type Skill struct {
	ID              uint64      `gorm:"primaryKey" json:"id"`
	EngineerID      uint64      `gorm:"index;not null" json:"engineer_id"`
	Name            string      `gorm:"type:varchar(128);not null" json:"name"`
	Proficiency     Proficiency `gorm:"type:varchar(32);not null" json:"proficiency"`
	YearsExperience float64     `gorm:"not null;default:0" json:"years_experience"`
}
