package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
)

// copyDay copies the lessons of a class day onto another date.
func (cli *commandLine) copyDay(actor core.Actor, classID, from, to, mode string) error {
	source, err := clock.ParseDate(from)
	if err != nil {
		return err
	}
	target, err := clock.ParseDate(to)
	if err != nil {
		return err
	}
	res, err := cli.timetableSvc.CopyDay(context.Background(), actor, classID, source, target, timetable.CopyOptions{
		IncludeLessons: true,
		Mode:           timetable.CopyMode(mode),
	})
	if err != nil {
		return err
	}

	if res.Info != "" {
		fmt.Fprintln(cli.out, res.Info)
		return nil
	}
	fmt.Fprintf(cli.out, "%d assignment(s) copied to %s\n", res.Written, clock.DateKey(target))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(cli.out, "skipped period(s) blocked by a break: %v\n", res.Skipped)
	}
	return nil
}
