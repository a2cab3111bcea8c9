package service

import (
	"context"
	"testing"
	"time"

	"github.com/psds-microservice/complaint-service/internal/errs"
	"github.com/psds-microservice/complaint-service/internal/model"
	"github.com/psds-microservice/complaint-service/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attClock is a settable clock for simulating arbitrary instants.
type attClock struct {
	t time.Time
}

func (c *attClock) now() time.Time { return c.t }

func (c *attClock) set(hour, min, sec int) {
	c.t = time.Date(c.t.Year(), c.t.Month(), c.t.Day(), hour, min, sec, 0, c.t.Location())
}

func newAttendanceFixture(t *testing.T) (*memstore.Store, *Attendance, *attClock) {
	t.Helper()
	st := memstore.New()
	st.AddEngineer(model.Engineer{ID: 1, Name: "Dana", Role: model.RoleEngineer, Active: true})
	clk := &attClock{t: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)}
	att := NewAttendance(st, DefaultWorkWindow, clk.now)
	return st, att, clk
}

func TestCheckInWindowBoundaries(t *testing.T) {
	cases := []struct {
		name          string
		hour, min, s  int
		wantAccepted  bool
	}{
		{"one second before open", 8, 59, 59, false},
		{"exactly at open", 9, 0, 0, true},
		{"last second of window", 18, 59, 59, true},
		{"exactly at close", 19, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, att, clk := newAttendanceFixture(t)
			clk.set(tc.hour, tc.min, tc.s)
			_, err := att.CheckIn(context.Background(), 1)
			if tc.wantAccepted {
				assert.NoError(t, err)
			} else {
				assert.True(t, errs.IsValidation(err), "got %v", err)
			}
		})
	}
}

func TestCheckInUnknownEngineer(t *testing.T) {
	_, att, _ := newAttendanceFixture(t)
	_, err := att.CheckIn(context.Background(), 404)
	assert.True(t, errs.IsNotFound(err), "got %v", err)
}

func TestDoubleCheckInRejected(t *testing.T) {
	_, att, _ := newAttendanceFixture(t)
	ctx := context.Background()
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)
	_, err = att.CheckIn(ctx, 1)
	assert.True(t, errs.IsValidation(err), "got %v", err)
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	_, att, _ := newAttendanceFixture(t)
	_, err := att.CheckOut(context.Background(), 1)
	assert.True(t, errs.IsValidation(err), "got %v", err)
}

func TestLateCheckOutClampsToBoundary(t *testing.T) {
	st, att, clk := newAttendanceFixture(t)
	ctx := context.Background()
	clk.set(9, 10, 0)
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)

	clk.set(19, 5, 0)
	res, err := att.CheckOut(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.AutoCheckout)
	assert.Equal(t, 590, res.MinutesWorked)
	assert.Equal(t, 590, res.Status.DailyTotalWorkMinutes)
	require.NotNil(t, res.Status.LastCheckOut)
	assert.Equal(t, 19, res.Status.LastCheckOut.Hour())
	assert.Equal(t, 0, res.Status.LastCheckOut.Minute())

	records, err := st.ListDailyWorkRecords(ctx, 1, "", "")
	require.NoError(t, err)
	require.Len(t, records, 1, "auto-checkout must persist the daily record")
	assert.Equal(t, 590, records[0].TotalWorkMinutes)
	assert.Equal(t, "2025-06-02", records[0].WorkDate)
}

func TestOvernightCheckOutClampsToCheckInDay(t *testing.T) {
	st, att, clk := newAttendanceFixture(t)
	ctx := context.Background()
	clk.set(18, 0, 0)
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)

	// Forgotten checkout, discovered the next morning: the stretch books
	// against the check-in day, capped at its window end.
	clk.t = clk.t.AddDate(0, 0, 1)
	clk.set(8, 0, 0)
	res, err := att.CheckOut(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.AutoCheckout)
	assert.Equal(t, 60, res.MinutesWorked)
	require.NotNil(t, res.Status.LastCheckOut)
	assert.Equal(t, "2025-06-02", model.WorkDateOf(*res.Status.LastCheckOut))

	records, err := st.ListDailyWorkRecords(ctx, 1, "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-06-02", records[0].WorkDate)
	assert.Equal(t, 60, records[0].TotalWorkMinutes)
}

func TestMidDayCheckOutIsNotPersisted(t *testing.T) {
	st, att, clk := newAttendanceFixture(t)
	ctx := context.Background()
	clk.set(9, 0, 0)
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)

	clk.set(12, 0, 0)
	res, err := att.CheckOut(ctx, 1)
	require.NoError(t, err)
	assert.False(t, res.AutoCheckout)
	assert.Equal(t, 180, res.MinutesWorked)

	records, err := st.ListDailyWorkRecords(ctx, 1, "", "")
	require.NoError(t, err)
	assert.Empty(t, records, "early checkouts update the registry row only")
}

func TestCheckOutNearBoundaryIsPersisted(t *testing.T) {
	st, att, clk := newAttendanceFixture(t)
	ctx := context.Background()
	clk.set(9, 0, 0)
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)

	clk.set(18, 40, 0)
	res, err := att.CheckOut(ctx, 1)
	require.NoError(t, err)
	assert.False(t, res.AutoCheckout)
	assert.Equal(t, 580, res.MinutesWorked)

	records, err := st.ListDailyWorkRecords(ctx, 1, "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 580, records[0].TotalWorkMinutes)
}

func TestDurationIsFloored(t *testing.T) {
	_, att, clk := newAttendanceFixture(t)
	ctx := context.Background()
	clk.set(9, 0, 0)
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)

	clk.set(9, 30, 59)
	res, err := att.CheckOut(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 30, res.MinutesWorked)
}

func TestMultipleStretchesAccumulate(t *testing.T) {
	_, att, clk := newAttendanceFixture(t)
	ctx := context.Background()
	clk.set(9, 0, 0)
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)
	clk.set(12, 0, 0)
	_, err = att.CheckOut(ctx, 1)
	require.NoError(t, err)

	clk.set(13, 0, 0)
	st2, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, st2.DailyFirstCheckIn.Hour(), "same-day re-check-in keeps first check-in")

	clk.set(18, 45, 0)
	res, err := att.CheckOut(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 345, res.MinutesWorked)
	assert.Equal(t, 525, res.Status.DailyTotalWorkMinutes)
}

func TestNewDayResetsDailyAggregates(t *testing.T) {
	_, att, clk := newAttendanceFixture(t)
	ctx := context.Background()
	clk.set(10, 0, 0)
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)
	clk.set(18, 0, 0)
	res, err := att.CheckOut(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 480, res.Status.DailyTotalWorkMinutes)

	clk.t = clk.t.AddDate(0, 0, 1)
	clk.set(9, 30, 0)
	st2, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, st2.DailyTotalWorkMinutes)
	require.NotNil(t, st2.DailyFirstCheckIn)
	assert.Equal(t, "2025-06-03", model.WorkDateOf(*st2.DailyFirstCheckIn))
	assert.Nil(t, st2.DailyLastCheckOut)
}

func TestForceCheckOutAll(t *testing.T) {
	st, att, clk := newAttendanceFixture(t)
	st.AddEngineer(model.Engineer{ID: 2, Name: "Robin", Role: model.RoleEngineer, Active: true})
	ctx := context.Background()

	clk.set(18, 0, 0)
	_, err := att.CheckIn(ctx, 1)
	require.NoError(t, err)
	// Engineer 2 already left for the day.
	clk.set(18, 10, 0)
	_, err = att.CheckIn(ctx, 2)
	require.NoError(t, err)
	clk.set(18, 20, 0)
	_, err = att.CheckOut(ctx, 2)
	require.NoError(t, err)

	// Before the boundary the sweep is a no-op.
	clk.set(18, 30, 0)
	n, err := att.ForceCheckOutAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.set(21, 0, 0)
	n, err = att.ForceCheckOutAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	es, err := st.GetEngineerStatus(ctx, 1)
	require.NoError(t, err)
	assert.False(t, es.IsCheckedIn)
	require.NotNil(t, es.LastCheckOut)
	assert.Equal(t, 19, es.LastCheckOut.Hour())
	assert.Equal(t, 60, es.DailyTotalWorkMinutes)

	records, err := st.ListDailyWorkRecords(ctx, 1, "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 60, records[0].TotalWorkMinutes)
}

func TestStatusForUnknownRegistryRow(t *testing.T) {
	_, att, _ := newAttendanceFixture(t)
	es, err := att.Status(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityFree, es.Availability)
	assert.False(t, es.IsCheckedIn)
}
