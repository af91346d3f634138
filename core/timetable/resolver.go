package timetable

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
)

// ResolveDay builds the ordered periods and breaks of a class on date, with the
// assignment stored for each period.
func (svc *Service) ResolveDay(ctx context.Context, classID string, date time.Time) (DaySchedule, error) {
	classID = core.CleanString(classID)
	date = clock.Day(date)

	slots, err := svc.repo.ListClassSlots(ctx, classID)
	if err != nil {
		return DaySchedule{}, errors.Wrap(err, "listing class slots")
	}
	asgs, err := svc.repo.ListDayAssignments(ctx, classID, date)
	if err != nil {
		return DaySchedule{}, errors.Wrap(err, "listing day assignments")
	}
	return resolve(classID, date, slots, asgs), nil
}

// resolve is the pure part of ResolveDay.
func resolve(classID string, date time.Time, slots []ClassSlot, asgs []DaySlotAssignment) DaySchedule {
	day := DaySchedule{ClassID: classID, Date: date, Weekday: date.Weekday()}

	var periods, breaks []ClassSlot
	for _, s := range slots {
		switch {
		case s.IsPeriod():
			periods = append(periods, s)
		case s.ActiveOn(day.Weekday):
			breaks = append(breaks, s)
		}
	}
	sortSlots(breaks)

	byPeriod := make(map[int]DaySlotAssignment, len(asgs))
	for _, a := range asgs {
		byPeriod[a.PeriodNumber] = a
	}

	entries := make([]ClassSlot, 0, len(periods)+len(breaks))
	entries = append(entries, periods...)
	entries = append(entries, breaks...)
	sortSlots(entries)

	day.Entries = make([]DayEntry, 0, len(entries))
	known := make(map[int]bool, len(periods))
	for _, s := range entries {
		entry := DayEntry{Slot: s}
		if s.IsPeriod() {
			known[s.SlotNumber] = true
			if brk, ok := blockingBreak(s, breaks); ok {
				entry.BlockedBy = &brk
			}
			if a, ok := byPeriod[s.SlotNumber]; ok {
				a := a
				entry.Assignment = &a
				entry.Inconsistent = entry.BlockedBy != nil
			}
		}
		day.Entries = append(day.Entries, entry)
	}

	for _, a := range asgs {
		if !known[a.PeriodNumber] {
			day.Orphans = append(day.Orphans, a)
		}
	}
	sort.Slice(day.Orphans, func(i, j int) bool { return day.Orphans[i].PeriodNumber < day.Orphans[j].PeriodNumber })
	return day
}

// blockingBreak returns the first break (in display order) overlapping period.
func blockingBreak(period ClassSlot, breaks []ClassSlot) (ClassSlot, bool) {
	for _, b := range breaks {
		if period.Span().Overlaps(b.Span()) {
			return b, true
		}
	}
	return ClassSlot{}, false
}
