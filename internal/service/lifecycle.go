package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/complaint-service/internal/errs"
	"github.com/psds-microservice/complaint-service/internal/kafka"
	"github.com/psds-microservice/complaint-service/internal/model"
	"github.com/psds-microservice/complaint-service/internal/store"
)

// Lifecycle is the ticket state machine. Every composite mutation (ticket +
// engineer status + optional history row) runs in one transaction with a
// fixed lock order: ticket row first, engineer-status row second.
type Lifecycle struct {
	store    store.Store
	engine   *Engine
	producer kafka.TicketEventProducer
	now      Clock
}

func NewLifecycle(st store.Store, engine *Engine, producer kafka.TicketEventProducer, clock Clock) *Lifecycle {
	if clock == nil {
		clock = systemClock
	}
	return &Lifecycle{store: st, engine: engine, producer: producer, now: clock}
}

// CreateTicketInput carries the caller-supplied fields for a new complaint.
type CreateTicketInput struct {
	Problem         string
	Priority        model.TicketPriority
	CustomerID      uint64
	MachineID       uint64
	IssueCategories []string
}

// newTicketCode returns an externally visible unique code. UUID-based so
// concurrent creates cannot collide.
func newTicketCode() string {
	return "CMP-" + strings.ToUpper(uuid.NewString())
}

func (l *Lifecycle) Create(ctx context.Context, in CreateTicketInput, actor model.Actor) (*model.Ticket, error) {
	if strings.TrimSpace(in.Problem) == "" {
		return nil, errs.Validationf("problem description is required")
	}
	if in.CustomerID == 0 {
		return nil, errs.Validationf("customer_id is required")
	}
	if in.MachineID == 0 {
		return nil, errs.Validationf("machine_id is required")
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, errs.Validationf("invalid priority %q", priority)
	}
	if _, err := l.store.GetCustomer(ctx, in.CustomerID); err != nil {
		return nil, err
	}
	machine, err := l.store.GetMachine(ctx, in.MachineID)
	if err != nil {
		return nil, err
	}
	if machine.CustomerID != in.CustomerID {
		return nil, errs.Validationf("machine %d does not belong to customer %d", in.MachineID, in.CustomerID)
	}

	t := &model.Ticket{
		Code:            newTicketCode(),
		Status:          model.TicketStatusPending,
		WorkStatus:      model.WorkStatusPending,
		Priority:        priority,
		Problem:         strings.TrimSpace(in.Problem),
		IssueCategories: in.IssueCategories,
		CustomerID:      in.CustomerID,
		MachineID:       in.MachineID,
		CreatedAt:       l.now(),
	}
	if err := l.store.CreateTicket(ctx, t); err != nil {
		return nil, err
	}
	l.emit("ticket.created", t, nil)
	return t, nil
}

func (l *Lifecycle) Get(ctx context.Context, id uint64) (*model.Ticket, error) {
	return l.store.GetTicket(ctx, id)
}

func (l *Lifecycle) List(ctx context.Context, filter store.TicketFilter, limit, offset int) ([]model.Ticket, int64, error) {
	return l.store.ListTickets(ctx, filter, limit, offset)
}

func (l *Lifecycle) History(ctx context.Context, ticketID uint64) ([]model.ServiceHistory, error) {
	if _, err := l.store.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return l.store.ListServiceHistory(ctx, ticketID)
}

// guardOwnership rejects actors that are neither the assigned engineer nor
// manager-or-above.
func guardOwnership(t *model.Ticket, actor model.Actor) error {
	if actor.IsManagerial() {
		return nil
	}
	if t.AssignedEngineerID != nil && *t.AssignedEngineerID == actor.ID {
		return nil
	}
	return errs.Authorizationf("actor %d may not modify ticket %d", actor.ID, t.ID)
}

// ensureStatus loads the engineer-status row for update, creating a fresh
// free/checked-out row when the engineer has none yet.
func ensureStatus(ctx context.Context, st store.Store, engineerID uint64, now time.Time) (*model.EngineerStatus, error) {
	es, err := st.GetEngineerStatusForUpdate(ctx, engineerID)
	if err == nil {
		return es, nil
	}
	if !errs.IsNotFound(err) {
		return nil, err
	}
	es = &model.EngineerStatus{
		EngineerID:   engineerID,
		Availability: model.AvailabilityFree,
		UpdatedAt:    now,
	}
	if err := st.SaveEngineerStatus(ctx, es); err != nil {
		return nil, err
	}
	return es, nil
}

// Assign puts the ticket on an engineer. Engineers may only assign pending
// tickets to themselves; manager-or-above may assign or reassign anyone
// regardless of current status.
func (l *Lifecycle) Assign(ctx context.Context, ticketID, engineerID uint64, actor model.Actor) (*model.Ticket, error) {
	eng, err := l.store.GetEngineer(ctx, engineerID)
	if err != nil {
		return nil, err
	}
	if eng.Role != model.RoleEngineer {
		return nil, errs.Validationf("user %d is not an engineer", engineerID)
	}
	if !actor.IsManagerial() {
		if actor.ID != engineerID {
			return nil, errs.Authorizationf("engineers may only assign tickets to themselves")
		}
	}

	now := l.now()
	var out *model.Ticket
	err = l.store.InTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !actor.IsManagerial() && t.Status != model.TicketStatusPending {
			return errs.Conflictf("ticket %d is %s, only pending tickets can be self-assigned", t.ID, t.Status)
		}
		t.Status = model.TicketStatusAssigned
		t.AssignedEngineerID = &engineerID
		t.AssignedAt = &now

		es, err := ensureStatus(ctx, tx, engineerID, now)
		if err != nil {
			return err
		}
		es.Availability = model.AvailabilityBusy
		es.UpdatedAt = now
		if err := tx.SaveEngineerStatus(ctx, es); err != nil {
			return err
		}
		if err := tx.SaveTicket(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.emit("ticket.assigned", out, map[string]interface{}{"engineer_id": engineerID})
	return out, nil
}

// Unassign returns the ticket to pending and frees the engineer. The free is
// unconditional: other active tickets held by the same engineer are not
// checked (preserved behavior, see DESIGN.md).
func (l *Lifecycle) Unassign(ctx context.Context, ticketID uint64, actor model.Actor) (*model.Ticket, error) {
	now := l.now()
	var out *model.Ticket
	var freed uint64
	err := l.store.InTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := guardOwnership(t, actor); err != nil {
			return err
		}
		if t.AssignedEngineerID == nil {
			return errs.Conflictf("ticket %d has no assigned engineer", t.ID)
		}
		freed = *t.AssignedEngineerID
		t.Status = model.TicketStatusPending
		t.AssignedEngineerID = nil
		t.AssignedAt = nil

		es, err := ensureStatus(ctx, tx, freed, now)
		if err != nil {
			return err
		}
		es.Availability = model.AvailabilityFree
		es.UpdatedAt = now
		if err := tx.SaveEngineerStatus(ctx, es); err != nil {
			return err
		}
		if err := tx.SaveTicket(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.emit("ticket.unassigned", out, map[string]interface{}{"engineer_id": freed})
	return out, nil
}

// TransitionStatus moves the ticket to newStatus. Every non-pending status
// requires an assigned engineer; a pending ticket must be assigned first.
// Entering in_progress stamps the ticket check-in, marks work started and
// flips the engineer busy with a fresh check-in timestamp on the registry row.
func (l *Lifecycle) TransitionStatus(ctx context.Context, ticketID uint64, newStatus model.TicketStatus, description string, actor model.Actor) (*model.Ticket, error) {
	if !model.ValidTicketStatus(newStatus) {
		return nil, errs.Validationf("invalid status %q", newStatus)
	}
	if newStatus == model.TicketStatusPending {
		return nil, errs.Conflictf("use unassign to return a ticket to pending")
	}
	now := l.now()
	var out *model.Ticket
	err := l.store.InTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := guardOwnership(t, actor); err != nil {
			return err
		}
		if t.AssignedEngineerID == nil {
			return errs.Conflictf("ticket %d has no assigned engineer, assign it first", t.ID)
		}
		t.Status = newStatus
		switch newStatus {
		case model.TicketStatusInProgress:
			t.CheckInAt = &now
			if t.WorkStatus == model.WorkStatusPending {
				t.WorkStatus = model.WorkStatusStarted
			}
			es, err := ensureStatus(ctx, tx, *t.AssignedEngineerID, now)
			if err != nil {
				return err
			}
			es.Availability = model.AvailabilityBusy
			es.LastCheckIn = &now
			es.UpdatedAt = now
			if err := tx.SaveEngineerStatus(ctx, es); err != nil {
				return err
			}
		case model.TicketStatusResolved:
			t.ResolvedAt = &now
		case model.TicketStatusClosed:
			t.ClosedAt = &now
		}
		if err := tx.SaveTicket(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.emit("ticket.status_changed", out, map[string]interface{}{"description": description})
	return out, nil
}

// Complete marks the work done: records solution and spares, appends the
// service-history row and frees the assigned engineer.
func (l *Lifecycle) Complete(ctx context.Context, ticketID uint64, workPerformed, solutionNotes string, spares model.SpareUsageList, actor model.Actor) (*model.Ticket, error) {
	now := l.now()
	var out *model.Ticket
	err := l.store.InTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := guardOwnership(t, actor); err != nil {
			return err
		}
		if t.AssignedEngineerID == nil {
			return errs.Conflictf("ticket %d has no assigned engineer to complete it", t.ID)
		}
		engineerID := *t.AssignedEngineerID
		t.WorkStatus = model.WorkStatusCompleted
		t.SolutionNotes = solutionNotes
		t.SparesUsed = spares

		if err := tx.AppendServiceHistory(ctx, &model.ServiceHistory{
			TicketID:      t.ID,
			TicketCode:    t.Code,
			EngineerID:    engineerID,
			WorkPerformed: workPerformed,
			SolutionNotes: solutionNotes,
			SparesUsed:    spares,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		es, err := ensureStatus(ctx, tx, engineerID, now)
		if err != nil {
			return err
		}
		es.Availability = model.AvailabilityFree
		es.LastCheckOut = &now
		es.UpdatedAt = now
		if err := tx.SaveEngineerStatus(ctx, es); err != nil {
			return err
		}
		if err := tx.SaveTicket(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.emit("ticket.completed", out, nil)
	return out, nil
}

// Close ends the ticket. Solution notes are mandatory, an assigned engineer
// is required and the history row is credited to that engineer.
func (l *Lifecycle) Close(ctx context.Context, ticketID uint64, solutionNotes string, actor model.Actor) (*model.Ticket, error) {
	if strings.TrimSpace(solutionNotes) == "" {
		return nil, errs.Validationf("solution notes are required to close a ticket")
	}
	now := l.now()
	var out *model.Ticket
	err := l.store.InTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := guardOwnership(t, actor); err != nil {
			return err
		}
		if t.AssignedEngineerID == nil {
			return errs.Conflictf("ticket %d has no assigned engineer to close it", t.ID)
		}
		historyEngineer := *t.AssignedEngineerID
		t.Status = model.TicketStatusClosed
		t.SolutionNotes = solutionNotes
		t.ClosedAt = &now

		if err := tx.AppendServiceHistory(ctx, &model.ServiceHistory{
			TicketID:      t.ID,
			TicketCode:    t.Code,
			EngineerID:    historyEngineer,
			WorkPerformed: t.Problem,
			SolutionNotes: solutionNotes,
			SparesUsed:    t.SparesUsed,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		es, err := ensureStatus(ctx, tx, historyEngineer, now)
		if err != nil {
			return err
		}
		es.Availability = model.AvailabilityFree
		es.LastCheckOut = &now
		es.UpdatedAt = now
		if err := tx.SaveEngineerStatus(ctx, es); err != nil {
			return err
		}
		if err := tx.SaveTicket(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.emit("ticket.closed", out, nil)
	return out, nil
}

// AutoAssignResult is the outcome of automatic assignment.
type AutoAssignResult struct {
	Ticket       *model.Ticket    `json:"ticket"`
	AssignedTo   ScoredEngineer   `json:"assigned_to"`
	Alternatives []ScoredEngineer `json:"alternatives"`
}

// AutoAssign picks the highest-scored active engineer for the ticket,
// assigns with managerial semantics and returns up to three alternatives.
func (l *Lifecycle) AutoAssign(ctx context.Context, ticketID uint64, actor model.Actor) (*AutoAssignResult, error) {
	t, err := l.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ranked, err := l.engine.Rank(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, errs.NotFoundf("no active engineers available for assignment")
	}
	top := ranked[0]
	assigned, err := l.Assign(ctx, ticketID, top.Engineer.ID, model.Actor{ID: actor.ID, Role: model.RoleManager})
	if err != nil {
		return nil, err
	}
	alternatives := ranked[1:]
	if len(alternatives) > 3 {
		alternatives = alternatives[:3]
	}
	return &AutoAssignResult{
		Ticket:       assigned,
		AssignedTo:   top,
		Alternatives: alternatives,
	}, nil
}

// Suggest proxies the engine's availability-then-match ordering.
func (l *Lifecycle) Suggest(ctx context.Context, ticketID uint64) ([]ScoredEngineer, error) {
	return l.engine.Suggest(ctx, ticketID)
}

// emit publishes a ticket event, fire-and-forget. The event must survive
// request cancellation, hence the detached context with its own timeout.
func (l *Lifecycle) emit(event string, t *model.Ticket, extra map[string]interface{}) {
	if l.producer == nil || t == nil {
		return
	}
	payload := map[string]interface{}{
		"ticket_id":   int64(t.ID),
		"code":        t.Code,
		"status":      string(t.Status),
		"work_status": string(t.WorkStatus),
		"priority":    string(t.Priority),
		"customer_id": int64(t.CustomerID),
		"machine_id":  int64(t.MachineID),
	}
	if t.AssignedEngineerID != nil {
		payload["engineer_id"] = int64(*t.AssignedEngineerID)
	}
	for k, v := range extra {
		payload[k] = v
	}
	go func() {
		eventCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.producer.ProduceTicketEvent(eventCtx, event, payload)
	}()
}
