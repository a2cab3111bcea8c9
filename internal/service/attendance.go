package service

import (
	"context"
	"time"

	"github.com/psds-microservice/complaint-service/internal/errs"
	"github.com/psds-microservice/complaint-service/internal/model"
	"github.com/psds-microservice/complaint-service/internal/store"
)

// WorkWindow is the business-hour gate for check-ins, a half-open hour
// range [Start, End) in local server time.
type WorkWindow struct {
	Start int // inclusive, e.g. 9
	End   int // exclusive, e.g. 19
}

// DefaultWorkWindow is 09:00-19:00.
var DefaultWorkWindow = WorkWindow{Start: 9, End: 19}

func (w WorkWindow) contains(t time.Time) bool {
	return t.Hour() >= w.Start && t.Hour() < w.End
}

// endOfDay returns the End-hour instant on t's calendar date, the cap for
// late checkouts.
func (w WorkWindow) endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), w.End, 0, 0, 0, t.Location())
}

// Attendance tracks engineer check-ins and daily worked minutes.
type Attendance struct {
	store  store.Store
	window WorkWindow
	now    Clock
}

func NewAttendance(st store.Store, window WorkWindow, clock Clock) *Attendance {
	if window == (WorkWindow{}) {
		window = DefaultWorkWindow
	}
	if clock == nil {
		clock = systemClock
	}
	return &Attendance{store: st, window: window, now: clock}
}

// CheckIn records the start of an engineer's working stretch. Rejected
// outside the business-hour window or when already checked in. The first
// check-in of a new calendar day resets the daily aggregates.
func (a *Attendance) CheckIn(ctx context.Context, engineerID uint64) (*model.EngineerStatus, error) {
	now := a.now()
	if _, err := a.store.GetEngineer(ctx, engineerID); err != nil {
		return nil, err
	}
	if !a.window.contains(now) {
		return nil, errs.Validationf("check-in allowed between %02d:00 and %02d:00", a.window.Start, a.window.End)
	}
	var out *model.EngineerStatus
	err := a.store.InTx(ctx, func(tx store.Store) error {
		es, err := ensureStatus(ctx, tx, engineerID, now)
		if err != nil {
			return err
		}
		if es.IsCheckedIn {
			return errs.Validationf("engineer %d is already checked in", engineerID)
		}
		if es.DailyFirstCheckIn != nil && !model.SameWorkDate(*es.DailyFirstCheckIn, now) {
			es.DailyFirstCheckIn = nil
			es.DailyLastCheckOut = nil
			es.DailyTotalWorkMinutes = 0
		}
		es.IsCheckedIn = true
		es.LastCheckIn = &now
		if es.DailyFirstCheckIn == nil {
			es.DailyFirstCheckIn = &now
		}
		es.UpdatedAt = now
		if err := tx.SaveEngineerStatus(ctx, es); err != nil {
			return err
		}
		out = es
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckOutResult reports the effective checkout. AutoCheckout is set when
// the instant was clamped to the end-of-day cap.
type CheckOutResult struct {
	Status        *model.EngineerStatus `json:"status"`
	AutoCheckout  bool                  `json:"auto_checkout"`
	MinutesWorked int                   `json:"minutes_worked"`
}

// CheckOut ends the current working stretch. Past the window end of the
// check-in's calendar day the effective instant is clamped to End:00:00 of
// that day, so a forgotten checkout discovered the next morning still books
// against the day the work happened. The daily record is persisted only for
// auto-checkouts and checkouts within 30 minutes of the boundary; earlier
// checkouts update the registry row alone.
func (a *Attendance) CheckOut(ctx context.Context, engineerID uint64) (*CheckOutResult, error) {
	now := a.now()
	var out *CheckOutResult
	err := a.store.InTx(ctx, func(tx store.Store) error {
		es, err := tx.GetEngineerStatusForUpdate(ctx, engineerID)
		if err != nil {
			if errs.IsNotFound(err) {
				return errs.Validationf("engineer %d is not checked in", engineerID)
			}
			return err
		}
		if !es.IsCheckedIn || es.LastCheckIn == nil {
			return errs.Validationf("engineer %d is not checked in", engineerID)
		}
		cutoff := a.window.endOfDay(*es.LastCheckIn)
		auto := !now.Before(cutoff)
		effective := now
		if auto {
			effective = cutoff
		}
		minutes := int(effective.Sub(*es.LastCheckIn).Minutes())
		if minutes < 0 {
			minutes = 0
		}
		es.IsCheckedIn = false
		es.LastCheckOut = &effective
		es.DailyLastCheckOut = &effective
		es.DailyTotalWorkMinutes += minutes
		es.UpdatedAt = now
		if err := tx.SaveEngineerStatus(ctx, es); err != nil {
			return err
		}
		if auto || cutoff.Sub(now) <= 30*time.Minute {
			if err := tx.UpsertDailyWorkRecord(ctx, &model.DailyWorkRecord{
				EngineerID:       engineerID,
				WorkDate:         model.WorkDateOf(effective),
				FirstCheckIn:     es.DailyFirstCheckIn,
				LastCheckOut:     es.DailyLastCheckOut,
				TotalWorkMinutes: es.DailyTotalWorkMinutes,
				UpdatedAt:        now,
			}); err != nil {
				return err
			}
		}
		out = &CheckOutResult{Status: es, AutoCheckout: auto, MinutesWorked: minutes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Status returns the registry row for an engineer.
func (a *Attendance) Status(ctx context.Context, engineerID uint64) (*model.EngineerStatus, error) {
	if _, err := a.store.GetEngineer(ctx, engineerID); err != nil {
		return nil, err
	}
	es, err := a.store.GetEngineerStatus(ctx, engineerID)
	if err != nil {
		if errs.IsNotFound(err) {
			return &model.EngineerStatus{EngineerID: engineerID, Availability: model.AvailabilityFree}, nil
		}
		return nil, err
	}
	return es, nil
}

// DailyRecords lists per-day aggregates, optionally bounded by from/to
// (inclusive, YYYY-MM-DD).
func (a *Attendance) DailyRecords(ctx context.Context, engineerID uint64, from, to string) ([]model.DailyWorkRecord, error) {
	if _, err := a.store.GetEngineer(ctx, engineerID); err != nil {
		return nil, err
	}
	return a.store.ListDailyWorkRecords(ctx, engineerID, from, to)
}

// ForceCheckOutAll checks out every engineer still checked in past the
// window end, clamping each to End:00:00 of their check-in's calendar day
// and persisting the daily record. Returns the number of engineers swept.
// No-op before the window end.
func (a *Attendance) ForceCheckOutAll(ctx context.Context) (int, error) {
	now := a.now()
	if now.Before(a.window.endOfDay(now)) {
		return 0, nil
	}
	checkedIn, err := a.store.ListCheckedIn(ctx)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, row := range checkedIn {
		engineerID := row.EngineerID
		did := false
		err := a.store.InTx(ctx, func(tx store.Store) error {
			es, err := tx.GetEngineerStatusForUpdate(ctx, engineerID)
			if err != nil {
				return err
			}
			if !es.IsCheckedIn || es.LastCheckIn == nil {
				return nil // raced with a client checkout
			}
			did = true
			effective := a.window.endOfDay(*es.LastCheckIn)
			minutes := int(effective.Sub(*es.LastCheckIn).Minutes())
			if minutes < 0 {
				minutes = 0
			}
			es.IsCheckedIn = false
			es.LastCheckOut = &effective
			es.DailyLastCheckOut = &effective
			es.DailyTotalWorkMinutes += minutes
			es.UpdatedAt = now
			if err := tx.SaveEngineerStatus(ctx, es); err != nil {
				return err
			}
			return tx.UpsertDailyWorkRecord(ctx, &model.DailyWorkRecord{
				EngineerID:       engineerID,
				WorkDate:         model.WorkDateOf(effective),
				FirstCheckIn:     es.DailyFirstCheckIn,
				LastCheckOut:     es.DailyLastCheckOut,
				TotalWorkMinutes: es.DailyTotalWorkMinutes,
				UpdatedAt:        now,
			})
		})
		if err != nil {
			return swept, err
		}
		if did {
			swept++
		}
	}
	return swept, nil
}
