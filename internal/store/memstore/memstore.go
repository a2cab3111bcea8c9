// Package memstore is an in-memory store.Store used by unit tests. It keeps
// the same observable behavior as gormstore for the operations the services
// exercise; InTx provides no isolation, which is adequate for the
// single-goroutine tests that use it.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/psds-microservice/complaint-service/internal/errs"
	"github.com/psds-microservice/complaint-service/internal/model"
	"github.com/psds-microservice/complaint-service/internal/store"
)

type Store struct {
	mu sync.Mutex

	nextTicketID  uint64
	nextHistoryID uint64
	nextRecordID  uint64

	tickets   map[uint64]model.Ticket
	engineers map[uint64]model.Engineer
	skills    map[uint64][]model.Skill
	machines  map[uint64]model.Machine
	customers map[uint64]model.Customer
	statuses  map[uint64]model.EngineerStatus
	daily     map[string]model.DailyWorkRecord // key: engineerID|workDate
	history   []model.ServiceHistory
}

func New() *Store {
	return &Store{
		nextTicketID:  1,
		nextHistoryID: 1,
		nextRecordID:  1,
		tickets:       make(map[uint64]model.Ticket),
		engineers:     make(map[uint64]model.Engineer),
		skills:        make(map[uint64][]model.Skill),
		machines:      make(map[uint64]model.Machine),
		customers:     make(map[uint64]model.Customer),
		statuses:      make(map[uint64]model.EngineerStatus),
		daily:         make(map[string]model.DailyWorkRecord),
	}
}

// Seed helpers for tests.

func (s *Store) AddEngineer(e model.Engineer, skills ...model.Skill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engineers[e.ID] = e
	if len(skills) > 0 {
		s.skills[e.ID] = append(s.skills[e.ID], skills...)
	}
}

func (s *Store) AddCustomer(c model.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *Store) AddMachine(m model.Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines[m.ID] = m
}

func (s *Store) SetStatus(st model.EngineerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[st.EngineerID] = st
}

func (s *Store) InTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func (s *Store) CreateTicket(ctx context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextTicketID
	s.nextTicketID++
	s.tickets[t.ID] = *t
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, errs.NotFoundf("ticket %d not found", id)
	}
	out := t
	return &out, nil
}

func (s *Store) GetTicketForUpdate(ctx context.Context, id uint64) (*model.Ticket, error) {
	return s.GetTicket(ctx, id)
}

func (s *Store) SaveTicket(ctx context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[t.ID]; !ok {
		return errs.NotFoundf("ticket %d not found", t.ID)
	}
	s.tickets[t.ID] = *t
	return nil
}

func matchesFilter(t model.Ticket, cond string, v interface{}) bool {
	switch strings.TrimSpace(cond) {
	case "status = ?":
		return string(t.Status) == toString(v)
	case "priority = ?":
		return string(t.Priority) == toString(v)
	case "customer_id = ?":
		return t.CustomerID == toUint64(v)
	case "machine_id = ?":
		return t.MachineID == toUint64(v)
	case "assigned_engineer_id = ?":
		return t.AssignedEngineerID != nil && *t.AssignedEngineerID == toUint64(v)
	}
	return true
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	}
	return 0
}

func (s *Store) ListTickets(ctx context.Context, filter store.TicketFilter, limit, offset int) ([]model.Ticket, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []model.Ticket
	for _, t := range s.tickets {
		ok := true
		for cond, v := range filter {
			if !matchesFilter(t, cond, v) {
				ok = false
				break
			}
		}
		if ok {
			items = append(items, t)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	total := int64(len(items))
	if offset > 0 {
		if offset >= len(items) {
			items = nil
		} else {
			items = items[offset:]
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, total, nil
}

func (s *Store) GetEngineer(ctx context.Context, id uint64) (*model.Engineer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engineers[id]
	if !ok {
		return nil, errs.NotFoundf("engineer %d not found", id)
	}
	out := e
	return &out, nil
}

func (s *Store) ListActiveEngineers(ctx context.Context) ([]model.Engineer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []model.Engineer
	for _, e := range s.engineers {
		if e.Active && e.Role == model.RoleEngineer {
			items = append(items, e)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *Store) ListSkills(ctx context.Context, engineerID uint64) ([]model.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Skill(nil), s.skills[engineerID]...), nil
}

func (s *Store) GetMachine(ctx context.Context, id uint64) (*model.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[id]
	if !ok {
		return nil, errs.NotFoundf("machine %d not found", id)
	}
	out := m
	return &out, nil
}

func (s *Store) GetCustomer(ctx context.Context, id uint64) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, errs.NotFoundf("customer %d not found", id)
	}
	out := c
	return &out, nil
}

func (s *Store) GetEngineerStatus(ctx context.Context, engineerID uint64) (*model.EngineerStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[engineerID]
	if !ok {
		return nil, errs.NotFoundf("engineer status %d not found", engineerID)
	}
	out := st
	return &out, nil
}

func (s *Store) GetEngineerStatusForUpdate(ctx context.Context, engineerID uint64) (*model.EngineerStatus, error) {
	return s.GetEngineerStatus(ctx, engineerID)
}

func (s *Store) SaveEngineerStatus(ctx context.Context, st *model.EngineerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[st.EngineerID] = *st
	return nil
}

func (s *Store) ListCheckedIn(ctx context.Context) ([]model.EngineerStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []model.EngineerStatus
	for _, st := range s.statuses {
		if st.IsCheckedIn {
			items = append(items, st)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].EngineerID < items[j].EngineerID })
	return items, nil
}

func recordKey(engineerID uint64, workDate string) string {
	return strconv.FormatUint(engineerID, 10) + "|" + workDate
}

func (s *Store) UpsertDailyWorkRecord(ctx context.Context, rec *model.DailyWorkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey(rec.EngineerID, rec.WorkDate)
	if existing, ok := s.daily[key]; ok {
		rec.ID = existing.ID
	} else {
		rec.ID = s.nextRecordID
		s.nextRecordID++
	}
	s.daily[key] = *rec
	return nil
}

func (s *Store) ListDailyWorkRecords(ctx context.Context, engineerID uint64, from, to string) ([]model.DailyWorkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []model.DailyWorkRecord
	for _, rec := range s.daily {
		if rec.EngineerID != engineerID {
			continue
		}
		if from != "" && rec.WorkDate < from {
			continue
		}
		if to != "" && rec.WorkDate > to {
			continue
		}
		items = append(items, rec)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].WorkDate < items[j].WorkDate })
	return items, nil
}

func (s *Store) AppendServiceHistory(ctx context.Context, h *model.ServiceHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = s.nextHistoryID
	s.nextHistoryID++
	s.history = append(s.history, *h)
	return nil
}

func (s *Store) ListServiceHistory(ctx context.Context, ticketID uint64) ([]model.ServiceHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []model.ServiceHistory
	for _, h := range s.history {
		if h.TicketID == ticketID {
			items = append(items, h)
		}
	}
	return items, nil
}
