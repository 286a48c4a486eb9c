package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dentbook/clinic/libs/config"
	"github.com/dentbook/clinic/libs/db"
	"github.com/dentbook/clinic/services/booking-service/internal/availability"
	"github.com/dentbook/clinic/services/booking-service/internal/storage"
)

type slotPlan struct {
	From         time.Time
	Days         int
	Hours        availability.Hours
	Length       time.Duration
	SkipWeekends bool
}

type slotWriter interface {
	SlotTimesOn(ctx context.Context, date time.Time) ([]time.Duration, error)
	InsertSlots(ctx context.Context, date time.Time, times []time.Duration) (int64, error)
}

func newSlotsCmd() *cobra.Command {
	var (
		from, open, closing string
		plan                slotPlan
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Create free time slots for a range of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if plan.From, err = time.ParseInLocation(time.DateOnly, from, time.Local); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if plan.Hours.Open, err = parseClock(open); err != nil {
				return fmt.Errorf("--open: %w", err)
			}
			if plan.Hours.Close, err = parseClock(closing); err != nil {
				return fmt.Errorf("--close: %w", err)
			}
			if plan.Days < 1 {
				return errors.New("--days must be at least 1")
			}

			dbURL, err := config.RequiredString("DATABASE_URL")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 2})
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			return generateSlots(ctx, storage.NewStore(pool), plan, time.Now(), cmd.OutOrStdout())
		},
	}
	generate.Flags().StringVar(&from, "from", time.Now().Format(time.DateOnly), "first day (YYYY-MM-DD)")
	generate.Flags().IntVar(&plan.Days, "days", 1, "number of consecutive days")
	generate.Flags().StringVar(&open, "open", "08:00", "opening time (HH:MM)")
	generate.Flags().StringVar(&closing, "close", "16:00", "closing time (HH:MM)")
	generate.Flags().DurationVar(&plan.Length, "length", 30*time.Minute, "slot length")
	generate.Flags().BoolVar(&plan.SkipWeekends, "skip-weekends", true, "leave Saturdays and Sundays empty")

	slots := &cobra.Command{
		Use:   "slots",
		Short: "Manage bookable time slots",
	}
	slots.AddCommand(generate)
	return slots
}

func generateSlots(ctx context.Context, w slotWriter, plan slotPlan, now time.Time, out io.Writer) error {
	var total int64
	for i := 0; i < plan.Days; i++ {
		day := plan.From.AddDate(0, 0, i)
		if plan.SkipWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			continue
		}
		existing, err := w.SlotTimesOn(ctx, day)
		if err != nil {
			return fmt.Errorf("%s: %w", day.Format(time.DateOnly), err)
		}
		times := availability.DailySlots(plan.Hours, plan.Length, existing, availability.NotBefore(day, now))
		n, err := w.InsertSlots(ctx, day, times)
		if err != nil {
			return fmt.Errorf("%s: %w", day.Format(time.DateOnly), err)
		}
		total += n
		fmt.Fprintf(out, "%s: %d slot(s) added\n", day.Format(time.DateOnly), n)
	}
	fmt.Fprintf(out, "total: %d\n", total)
	return nil
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
