// Package store declares the persistence boundary consumed by the services.
// The gormstore implementation backs production; memstore backs tests.
package store

import (
	"context"

	"github.com/psds-microservice/complaint-service/internal/model"
)

// TicketFilter keys are gorm-style conditions ("status = ?") mapped to their
// bind values, mirroring the list API of the sibling ticket-service.
type TicketFilter map[string]interface{}

type TicketStore interface {
	CreateTicket(ctx context.Context, t *model.Ticket) error
	GetTicket(ctx context.Context, id uint64) (*model.Ticket, error)
	// GetTicketForUpdate locks the ticket row for the duration of the
	// enclosing transaction. Must be called before any engineer-status
	// lock (fixed global lock order: ticket, then engineer status).
	GetTicketForUpdate(ctx context.Context, id uint64) (*model.Ticket, error)
	SaveTicket(ctx context.Context, t *model.Ticket) error
	ListTickets(ctx context.Context, filter TicketFilter, limit, offset int) ([]model.Ticket, int64, error)
}

type EngineerStore interface {
	GetEngineer(ctx context.Context, id uint64) (*model.Engineer, error)
	// ListActiveEngineers returns active engineers with role "engineer" in
	// stable enumeration order (ascending id).
	ListActiveEngineers(ctx context.Context) ([]model.Engineer, error)
	ListSkills(ctx context.Context, engineerID uint64) ([]model.Skill, error)
	GetMachine(ctx context.Context, id uint64) (*model.Machine, error)
	GetCustomer(ctx context.Context, id uint64) (*model.Customer, error)

	GetEngineerStatus(ctx context.Context, engineerID uint64) (*model.EngineerStatus, error)
	GetEngineerStatusForUpdate(ctx context.Context, engineerID uint64) (*model.EngineerStatus, error)
	SaveEngineerStatus(ctx context.Context, st *model.EngineerStatus) error
	ListCheckedIn(ctx context.Context) ([]model.EngineerStatus, error)
}

type AttendanceStore interface {
	UpsertDailyWorkRecord(ctx context.Context, rec *model.DailyWorkRecord) error
	ListDailyWorkRecords(ctx context.Context, engineerID uint64, from, to string) ([]model.DailyWorkRecord, error)
}

type HistoryStore interface {
	AppendServiceHistory(ctx context.Context, h *model.ServiceHistory) error
	ListServiceHistory(ctx context.Context, ticketID uint64) ([]model.ServiceHistory, error)
}

// Store aggregates the persistence boundary. InTx runs fn against a
// transactional view of the same store; implementations roll back when fn
// returns an error.
type Store interface {
	TicketStore
	EngineerStore
	AttendanceStore
	HistoryStore

	InTx(ctx context.Context, fn func(Store) error) error
}
