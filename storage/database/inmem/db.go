package inmemdb

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/timetable"
)

var errClosed = errors.New("database is closed")

type (
	DB struct {
		slot       *slotTable
		assignment *assignmentTable
		template   *templateTable
		override   *overrideTable
		closed     int32
	}

	slotTable struct {
		sync.RWMutex
		table map[string]*timetable.ClassSlot
	}

	// assignmentTable is keyed by id; (class, date, period) is kept unique.
	assignmentTable struct {
		sync.RWMutex
		table map[string]*timetable.DaySlotAssignment
	}

	templateTable struct {
		sync.RWMutex
		table map[string]*timetable.BreakTemplate
	}

	// overrideTable is keyed by school and date.
	overrideTable struct {
		sync.RWMutex
		table map[string]*calendar.Override
	}
)

func Open() (*DB, error) {
	db := &DB{
		slot:       &slotTable{table: make(map[string]*timetable.ClassSlot)},
		assignment: &assignmentTable{table: make(map[string]*timetable.DaySlotAssignment)},
		template:   &templateTable{table: make(map[string]*timetable.BreakTemplate)},
		override:   &overrideTable{table: make(map[string]*calendar.Override)},
	}
	return db, nil
}

// Close makes every later call fail as if the store were unreachable.
func (db *DB) Close() error {
	atomic.StoreInt32(&db.closed, 1)
	return nil
}

func (db *DB) check(op string) error {
	if atomic.LoadInt32(&db.closed) == 1 {
		return core.NewStoreError(op, errClosed)
	}
	return nil
}
