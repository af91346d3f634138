package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/clock"
)

// setHoliday forces a school date closed or open.
func (cli *commandLine) setHoliday(actor core.Actor, date, status, label string) error {
	d, err := clock.ParseDate(date)
	if err != nil {
		return err
	}
	ovr, err := cli.calendarSvc.SetOverride(context.Background(), actor, d, calendar.NewOverride{
		Status: calendar.Status(status),
		Label:  label,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is now %s for school %s\n", clock.DateKey(ovr.Date), ovr.Status, ovr.SchoolID)
	return nil
}

func (cli *commandLine) clearHoliday(actor core.Actor, date string) error {
	d, err := clock.ParseDate(date)
	if err != nil {
		return err
	}
	if err = cli.calendarSvc.ClearOverride(context.Background(), actor, d); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is back to its default state for school %s\n", clock.DateKey(d), actor.SchoolID)
	return nil
}
