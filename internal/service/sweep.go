package service

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StartSweepScheduler runs the attendance force-checkout on a 5-field cron
// schedule (minute hour dom month dow), e.g. "*/10 19-23 * * *" to sweep
// every 10 minutes after hours. Blocks until ctx is cancelled; run it in a
// goroutine. Returns immediately on an unparsable schedule.
func StartSweepScheduler(ctx context.Context, att *Attendance, schedule string) {
	if schedule == "" {
		log.Println("sweep: disabled (no schedule configured)")
		return
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("sweep: invalid schedule %q: %v, sweep disabled", schedule, err)
		return
	}
	log.Printf("sweep: scheduled (cron: %s)", schedule)

	for {
		now := att.now()
		next := sched.Next(now)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		n, err := att.ForceCheckOutAll(ctx)
		if err != nil {
			log.Printf("sweep: force checkout: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("sweep: force-checked-out %d engineer(s)", n)
		}
	}
}
