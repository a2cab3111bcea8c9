// Package gormstore implements the store boundary on gorm/postgres.
package gormstore

import (
	"context"
	"errors"

	"github.com/psds-microservice/complaint-service/internal/errs"
	"github.com/psds-microservice/complaint-service/internal/model"
	"github.com/psds-microservice/complaint-service/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn inside one transaction. Composite lifecycle mutations rely on
// this plus the fixed lock order (ticket row first, engineer-status row
// second) to stay deadlock-free.
func (s *Store) InTx(ctx context.Context, fn func(store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) CreateTicket(ctx context.Context, t *model.Ticket) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Store) GetTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("ticket %d not found", id)
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTicketForUpdate(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("ticket %d not found", id)
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) SaveTicket(ctx context.Context, t *model.Ticket) error {
	return s.db.WithContext(ctx).Save(t).Error
}

func (s *Store) ListTickets(ctx context.Context, filter store.TicketFilter, limit, offset int) ([]model.Ticket, int64, error) {
	var items []model.Ticket
	var total int64
	tx := s.db.WithContext(ctx).Model(&model.Ticket{})
	for k, v := range filter {
		tx = tx.Where(k, v)
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	if err := tx.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) GetEngineer(ctx context.Context, id uint64) (*model.Engineer, error) {
	var e model.Engineer
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("engineer %d not found", id)
		}
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListActiveEngineers(ctx context.Context) ([]model.Engineer, error) {
	var items []model.Engineer
	err := s.db.WithContext(ctx).
		Where("active = ? AND role = ?", true, model.RoleEngineer).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSkills(ctx context.Context, engineerID uint64) ([]model.Skill, error) {
	var items []model.Skill
	err := s.db.WithContext(ctx).
		Where("engineer_id = ?", engineerID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetMachine(ctx context.Context, id uint64) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("machine %d not found", id)
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetCustomer(ctx context.Context, id uint64) (*model.Customer, error) {
	var c model.Customer
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("customer %d not found", id)
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetEngineerStatus(ctx context.Context, engineerID uint64) (*model.EngineerStatus, error) {
	var st model.EngineerStatus
	err := s.db.WithContext(ctx).
		Where("engineer_id = ?", engineerID).
		First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("engineer status %d not found", engineerID)
		}
		return nil, err
	}
	return &st, nil
}

func (s *Store) GetEngineerStatusForUpdate(ctx context.Context, engineerID uint64) (*model.EngineerStatus, error) {
	var st model.EngineerStatus
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("engineer_id = ?", engineerID).
		First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFoundf("engineer status %d not found", engineerID)
		}
		return nil, err
	}
	return &st, nil
}

func (s *Store) SaveEngineerStatus(ctx context.Context, st *model.EngineerStatus) error {
	return s.db.WithContext(ctx).Save(st).Error
}

func (s *Store) ListCheckedIn(ctx context.Context) ([]model.EngineerStatus, error) {
	var items []model.EngineerStatus
	err := s.db.WithContext(ctx).
		Where("is_checked_in = ?", true).
		Order("engineer_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertDailyWorkRecord inserts or merges the per-day aggregate keyed by
// (engineer_id, work_date).
func (s *Store) UpsertDailyWorkRecord(ctx context.Context, rec *model.DailyWorkRecord) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "engineer_id"}, {Name: "work_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"first_check_in", "last_check_out", "total_work_minutes", "updated_at",
			}),
		}).
		Create(rec).Error
}

func (s *Store) ListDailyWorkRecords(ctx context.Context, engineerID uint64, from, to string) ([]model.DailyWorkRecord, error) {
	var items []model.DailyWorkRecord
	tx := s.db.WithContext(ctx).Where("engineer_id = ?", engineerID)
	if from != "" {
		tx = tx.Where("work_date >= ?", from)
	}
	if to != "" {
		tx = tx.Where("work_date <= ?", to)
	}
	if err := tx.Order("work_date ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AppendServiceHistory(ctx context.Context, h *model.ServiceHistory) error {
	return s.db.WithContext(ctx).Create(h).Error
}

func (s *Store) ListServiceHistory(ctx context.Context, ticketID uint64) ([]model.ServiceHistory, error) {
	var items []model.ServiceHistory
	err := s.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
