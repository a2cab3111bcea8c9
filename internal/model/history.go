package model

import "time"

// ServiceHistory is an append-only record written when a ticket is completed
// or closed. Rows are immutable once written.
type ServiceHistory struct {
	ID            uint64         `gorm:"primaryKey" json:"id"`
	TicketID      uint64         `gorm:"index;not null" json:"ticket_id"`
	TicketCode    string         `gorm:"type:varchar(64);index" json:"ticket_code"`
	EngineerID    uint64         `gorm:"index;not null" json:"engineer_id"`
	WorkPerformed string         `gorm:"type:text" json:"work_performed"`
	SolutionNotes string         `gorm:"type:text" json:"solution_notes"`
	SparesUsed    SpareUsageList `gorm:"type:jsonb" json:"spares_used,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
