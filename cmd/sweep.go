package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/psds-microservice/complaint-service/internal/database"
	"github.com/psds-microservice/complaint-service/internal/service"
	"github.com/psds-microservice/complaint-service/internal/store/gormstore"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Force-check-out engineers still checked in past the work window",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	att := service.NewAttendance(gormstore.New(db),
		service.WorkWindow{Start: cfg.WorkDayStart, End: cfg.WorkDayEnd}, nil)
	n, err := att.ForceCheckOutAll(context.Background())
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	log.Printf("sweep: force-checked-out %d engineer(s)", n)
	return nil
}
