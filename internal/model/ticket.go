package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is one of the defined lifecycle states.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

type WorkStatus string

const (
	WorkStatusPending   WorkStatus = "pending"
	WorkStatusStarted   WorkStatus = "started"
	WorkStatusCompleted WorkStatus = "completed"
)

type TicketPriority string

const (
	PriorityLow      TicketPriority = "low"
	PriorityMedium   TicketPriority = "medium"
	PriorityHigh     TicketPriority = "high"
	PriorityCritical TicketPriority = "critical"
)

func ValidPriority(p TicketPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// SpareUsage records one spare part consumed while working a ticket.
type SpareUsage struct {
	PartName string `json:"part_name"`
	Quantity int    `json:"quantity"`
	Serial   string `json:"serial,omitempty"`
}

// SpareUsageList is stored as a JSON column.
type SpareUsageList []SpareUsage

func (l SpareUsageList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *SpareUsageList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("spare usage list: unsupported source type %T", src)
}

// Ticket is a customer complaint tracked through the service lifecycle.
// Status and WorkStatus move independently: WorkStatus is reporting state
// and never gates a Status transition.
type Ticket struct {
	ID                 uint64         `gorm:"primaryKey" json:"id"`
	Code               string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Status             TicketStatus   `gorm:"type:varchar(32);index;not null" json:"status"`
	WorkStatus         WorkStatus     `gorm:"type:varchar(32);index;not null" json:"work_status"`
	Priority           TicketPriority `gorm:"type:varchar(32);index" json:"priority"`
	Problem            string         `gorm:"type:text;not null" json:"problem"`
	IssueCategories    pq.StringArray `gorm:"type:text[]" json:"issue_categories"`
	CustomerID         uint64         `gorm:"index;not null" json:"customer_id"`
	MachineID          uint64         `gorm:"index;not null" json:"machine_id"`
	AssignedEngineerID *uint64        `gorm:"index" json:"assigned_engineer_id,omitempty"`
	SolutionNotes      string         `gorm:"type:text" json:"solution_notes,omitempty"`
	SparesUsed         SpareUsageList `gorm:"type:jsonb" json:"spares_used,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	CheckInAt   *time.Time `json:"check_in_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// Customer is owned by the customer-management collaborator; the lifecycle
// only checks that the referenced row exists.
type Customer struct {
	ID   uint64 `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

// Machine is owned by the machine-management collaborator. ModelName feeds
// the assignment skill matcher.
type Machine struct {
	ID         uint64 `gorm:"primaryKey" json:"id"`
	CustomerID uint64 `gorm:"index;not null" json:"customer_id"`
	ModelName  string `gorm:"type:varchar(255);not null" json:"model_name"`
	Serial     string `gorm:"type:varchar(128)" json:"serial,omitempty"`
}
