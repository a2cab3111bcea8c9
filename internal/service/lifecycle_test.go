package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/psds-microservice/complaint-service/internal/errs"
	"github.com/psds-microservice/complaint-service/internal/model"
	"github.com/psds-microservice/complaint-service/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	engineerActor = model.Actor{ID: 1, Role: model.RoleEngineer}
	otherEngineer = model.Actor{ID: 2, Role: model.RoleEngineer}
	managerActor  = model.Actor{ID: 50, Role: model.RoleManager}
)

func newFixture(t *testing.T) (*memstore.Store, *Lifecycle) {
	t.Helper()
	st := memstore.New()
	st.AddCustomer(model.Customer{ID: 1, Name: "Acme Cold Chain"})
	st.AddMachine(model.Machine{ID: 1, CustomerID: 1, ModelName: "HVAC Unit 3000"})
	st.AddEngineer(model.Engineer{ID: 1, Name: "Dana", Role: model.RoleEngineer, Active: true})
	st.AddEngineer(model.Engineer{ID: 2, Name: "Robin", Role: model.RoleEngineer, Active: true})
	lc := NewLifecycle(st, NewEngine(st), nil, func() time.Time {
		return time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)
	})
	return st, lc
}

func createPending(t *testing.T, lc *Lifecycle) *model.Ticket {
	t.Helper()
	ticket, err := lc.Create(context.Background(), CreateTicketInput{
		Problem:         "unit trips breaker under load",
		CustomerID:      1,
		MachineID:       1,
		IssueCategories: []string{"electrical"},
	}, engineerActor)
	require.NoError(t, err)
	return ticket
}

func TestCreateValidation(t *testing.T) {
	_, lc := newFixture(t)
	ctx := context.Background()

	_, err := lc.Create(ctx, CreateTicketInput{CustomerID: 1, MachineID: 1}, engineerActor)
	assert.True(t, errs.IsValidation(err), "empty problem: %v", err)

	_, err = lc.Create(ctx, CreateTicketInput{Problem: "x", MachineID: 1}, engineerActor)
	assert.True(t, errs.IsValidation(err), "missing customer: %v", err)

	_, err = lc.Create(ctx, CreateTicketInput{Problem: "x", CustomerID: 1}, engineerActor)
	assert.True(t, errs.IsValidation(err), "missing machine: %v", err)

	_, err = lc.Create(ctx, CreateTicketInput{Problem: "x", CustomerID: 7, MachineID: 1}, engineerActor)
	assert.True(t, errs.IsNotFound(err), "unknown customer: %v", err)

	_, err = lc.Create(ctx, CreateTicketInput{Problem: "x", CustomerID: 1, MachineID: 1, Priority: "urgent"}, engineerActor)
	assert.True(t, errs.IsValidation(err), "bad priority: %v", err)
}

func TestCreateDefaults(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)

	assert.Equal(t, model.TicketStatusPending, ticket.Status)
	assert.Equal(t, model.WorkStatusPending, ticket.WorkStatus)
	assert.Equal(t, model.PriorityMedium, ticket.Priority)
	assert.Nil(t, ticket.AssignedEngineerID)
	assert.True(t, strings.HasPrefix(ticket.Code, "CMP-"))
}

func TestTicketCodesAreUnique(t *testing.T) {
	_, lc := newFixture(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ticket := createPending(t, lc)
		assert.False(t, seen[ticket.Code], "duplicate code %s", ticket.Code)
		seen[ticket.Code] = true
	}
}

func TestEngineerSelfAssign(t *testing.T) {
	st, lc := newFixture(t)
	ticket := createPending(t, lc)

	got, err := lc.Assign(context.Background(), ticket.ID, 1, engineerActor)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusAssigned, got.Status)
	require.NotNil(t, got.AssignedEngineerID)
	assert.Equal(t, uint64(1), *got.AssignedEngineerID)
	assert.NotNil(t, got.AssignedAt)

	es, err := st.GetEngineerStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityBusy, es.Availability)
}

func TestEngineerCannotAssignOthers(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)

	_, err := lc.Assign(context.Background(), ticket.ID, 2, engineerActor)
	assert.True(t, errs.IsAuthorization(err), "got %v", err)

	got, err := lc.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusPending, got.Status, "rejected assign must not mutate")
}

func TestEngineerCannotSelfAssignNonPending(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	_, err := lc.Assign(context.Background(), ticket.ID, 1, engineerActor)
	require.NoError(t, err)

	_, err = lc.Assign(context.Background(), ticket.ID, 2, otherEngineer)
	assert.True(t, errs.IsStateConflict(err), "got %v", err)
}

func TestManagerReassignsRegardlessOfStatus(t *testing.T) {
	st, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)
	_, err = lc.TransitionStatus(ctx, ticket.ID, model.TicketStatusInProgress, "", engineerActor)
	require.NoError(t, err)

	got, err := lc.Assign(ctx, ticket.ID, 2, managerActor)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), *got.AssignedEngineerID)

	es, err := st.GetEngineerStatus(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityBusy, es.Availability)
}

func TestAssignUnknownTicketAndEngineer(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()

	_, err := lc.Assign(ctx, 404, 1, managerActor)
	assert.True(t, errs.IsNotFound(err))

	_, err = lc.Assign(ctx, ticket.ID, 404, managerActor)
	assert.True(t, errs.IsNotFound(err))
}

func TestUnassignRestoresPendingAndFreesEngineer(t *testing.T) {
	st, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)

	got, err := lc.Unassign(ctx, ticket.ID, engineerActor)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusPending, got.Status)
	assert.Nil(t, got.AssignedEngineerID)
	assert.Nil(t, got.AssignedAt)

	es, err := st.GetEngineerStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityFree, es.Availability)

	// No history rows from assignment churn; history is written only on
	// complete and close.
	history, err := lc.History(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUnassignGuards(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)

	_, err = lc.Unassign(ctx, ticket.ID, otherEngineer)
	assert.True(t, errs.IsAuthorization(err), "got %v", err)

	_, err = lc.Unassign(ctx, ticket.ID, managerActor)
	require.NoError(t, err)

	_, err = lc.Unassign(ctx, ticket.ID, managerActor)
	assert.True(t, errs.IsStateConflict(err), "unassigned ticket: %v", err)
}

func TestTransitionToInProgressStampsCheckIn(t *testing.T) {
	st, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)

	got, err := lc.TransitionStatus(ctx, ticket.ID, model.TicketStatusInProgress, "on site", engineerActor)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusInProgress, got.Status)
	assert.Equal(t, model.WorkStatusStarted, got.WorkStatus)
	assert.NotNil(t, got.CheckInAt)

	es, err := st.GetEngineerStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityBusy, es.Availability)
	assert.NotNil(t, es.LastCheckIn)
}

func TestTransitionGuards(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)

	_, err = lc.TransitionStatus(ctx, ticket.ID, "paused", "", engineerActor)
	assert.True(t, errs.IsValidation(err), "unknown status: %v", err)

	_, err = lc.TransitionStatus(ctx, ticket.ID, model.TicketStatusPending, "", engineerActor)
	assert.True(t, errs.IsStateConflict(err), "pending via transition: %v", err)

	_, err = lc.TransitionStatus(ctx, ticket.ID, model.TicketStatusInProgress, "", otherEngineer)
	assert.True(t, errs.IsAuthorization(err), "foreign engineer: %v", err)
}

func TestCompleteRecordsHistoryAndFreesEngineer(t *testing.T) {
	st, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)
	spares := model.SpareUsageList{{PartName: "run capacitor", Quantity: 1}}

	got, err := lc.Complete(ctx, ticket.ID, "replaced capacitor", "failed start capacitor", spares, engineerActor)
	require.NoError(t, err)
	assert.Equal(t, model.WorkStatusCompleted, got.WorkStatus)
	assert.Equal(t, "failed start capacitor", got.SolutionNotes)
	assert.Equal(t, spares, got.SparesUsed)

	history, err := lc.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(1), history[0].EngineerID)
	assert.Equal(t, "replaced capacitor", history[0].WorkPerformed)
	assert.Equal(t, spares, history[0].SparesUsed)

	es, err := st.GetEngineerStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityFree, es.Availability)
	assert.NotNil(t, es.LastCheckOut)
}

func TestCompleteRequiresAssignee(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)

	_, err := lc.Complete(context.Background(), ticket.ID, "w", "n", nil, managerActor)
	assert.True(t, errs.IsStateConflict(err), "got %v", err)
}

func TestTransitionRequiresAssignee(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()

	// Managers cannot push an unassigned ticket out of pending either; that
	// would leave a non-pending ticket with no engineer.
	for _, status := range []model.TicketStatus{
		model.TicketStatusInProgress, model.TicketStatusResolved, model.TicketStatusClosed,
	} {
		_, err := lc.TransitionStatus(ctx, ticket.ID, status, "", managerActor)
		assert.True(t, errs.IsStateConflict(err), "%s: got %v", status, err)
	}

	got, err := lc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusPending, got.Status)
	assert.Nil(t, got.AssignedEngineerID)
}

func TestCloseRequiresAssignee(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()

	_, err := lc.Close(ctx, ticket.ID, "wired to the wrong phase", managerActor)
	assert.True(t, errs.IsStateConflict(err), "got %v", err)

	got, err := lc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusPending, got.Status, "rejected close must not mutate")
	history, err := lc.History(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCloseRequiresSolutionNotes(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)

	_, err = lc.Close(ctx, ticket.ID, "   ", engineerActor)
	assert.True(t, errs.IsValidation(err), "got %v", err)

	got, err := lc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusAssigned, got.Status, "rejected close must not mutate")
}

func TestCloseAppendsHistoryAndFreesEngineer(t *testing.T) {
	st, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)

	got, err := lc.Close(ctx, ticket.ID, "breaker replaced, load balanced", engineerActor)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusClosed, got.Status)
	assert.NotNil(t, got.ClosedAt)
	require.NotNil(t, got.AssignedEngineerID, "closed tickets keep their engineer")

	history, err := lc.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(1), history[0].EngineerID)

	es, err := st.GetEngineerStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityFree, es.Availability)
}

func TestStatusInvariant(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	ctx := context.Background()

	check := func(id uint64) {
		got, err := lc.Get(ctx, id)
		require.NoError(t, err)
		if got.Status == model.TicketStatusPending {
			assert.Nil(t, got.AssignedEngineerID)
		} else {
			assert.NotNil(t, got.AssignedEngineerID)
		}
	}

	check(ticket.ID)
	_, err := lc.Assign(ctx, ticket.ID, 1, engineerActor)
	require.NoError(t, err)
	check(ticket.ID)
	_, err = lc.TransitionStatus(ctx, ticket.ID, model.TicketStatusInProgress, "", engineerActor)
	require.NoError(t, err)
	check(ticket.ID)
	_, err = lc.Unassign(ctx, ticket.ID, engineerActor)
	require.NoError(t, err)
	check(ticket.ID)
}

func TestAutoAssignSelectsTopScore(t *testing.T) {
	st, lc := newFixture(t)
	ticket, err := lc.Create(context.Background(), CreateTicketInput{
		Problem:         "no cooling",
		CustomerID:      1,
		MachineID:       1,
		IssueCategories: []string{"hvac"},
	}, managerActor)
	require.NoError(t, err)

	st.AddEngineer(model.Engineer{ID: 3, Name: "Sam", Role: model.RoleEngineer, Active: true},
		model.Skill{EngineerID: 3, Name: "HVAC", Proficiency: model.ProficiencyExpert, YearsExperience: 5})
	st.SetStatus(model.EngineerStatus{EngineerID: 3, Availability: model.AvailabilityFree})
	st.SetStatus(model.EngineerStatus{EngineerID: 1, Availability: model.AvailabilityBusy})
	st.SetStatus(model.EngineerStatus{EngineerID: 2, Availability: model.AvailabilityBusy})

	res, err := lc.AutoAssign(context.Background(), ticket.ID, managerActor)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.AssignedTo.Engineer.ID)
	assert.InDelta(t, 24.5, res.AssignedTo.Score, 1e-9)
	assert.Equal(t, model.TicketStatusAssigned, res.Ticket.Status)
	assert.Len(t, res.Alternatives, 2)

	es, err := st.GetEngineerStatus(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityBusy, es.Availability)
}

func TestAutoAssignTieBreaksToEarliestEngineer(t *testing.T) {
	_, lc := newFixture(t)
	ticket := createPending(t, lc)
	// Engineers 1 and 2 have no skills and no status rows: identical scores.
	res, err := lc.AutoAssign(context.Background(), ticket.ID, managerActor)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.AssignedTo.Engineer.ID)
}

func TestAutoAssignNoEngineers(t *testing.T) {
	st := memstore.New()
	st.AddCustomer(model.Customer{ID: 1, Name: "Acme"})
	st.AddMachine(model.Machine{ID: 1, CustomerID: 1, ModelName: "HVAC Unit 3000"})
	lc := NewLifecycle(st, NewEngine(st), nil, nil)
	ticket, err := lc.Create(context.Background(), CreateTicketInput{
		Problem: "x", CustomerID: 1, MachineID: 1,
	}, managerActor)
	require.NoError(t, err)

	_, err = lc.AutoAssign(context.Background(), ticket.ID, managerActor)
	assert.True(t, errs.IsNotFound(err), "got %v", err)
}

func TestAutoAssignAlternativesCappedAtThree(t *testing.T) {
	st, lc := newFixture(t)
	for i := uint64(10); i < 16; i++ {
		st.AddEngineer(model.Engineer{ID: i, Name: "spare", Role: model.RoleEngineer, Active: true})
	}
	ticket := createPending(t, lc)
	res, err := lc.AutoAssign(context.Background(), ticket.ID, managerActor)
	require.NoError(t, err)
	assert.Len(t, res.Alternatives, 3)
}
