package timetable

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
)

type SlotType string

const (
	SlotPeriod SlotType = "period"
	SlotBreak  SlotType = "break"
)

type AssignmentStatus string

const (
	StatusPlanned   AssignmentStatus = "planned"
	StatusDone      AssignmentStatus = "done"
	StatusCancelled AssignmentStatus = "cancelled"
)

type CopyMode string

const (
	CopyReplace CopyMode = "replace"
	CopyMerge   CopyMode = "merge"
)

// ClassSlot is the recurring weekly definition of a period or a break for one class.
type ClassSlot struct {
	ID         string       `json:"id" db:"id"`
	SchoolID   string       `json:"school_id" db:"school_id"`
	ClassID    string       `json:"class_id" db:"class_id"`
	SlotType   SlotType     `json:"slot_type" db:"slot_type"`
	SlotNumber int          `json:"slot_number,omitempty" db:"slot_number"` // periods only
	Name       string       `json:"name,omitempty" db:"name"`               // breaks only
	StartTime  clock.Minute `json:"start_time" db:"start_time"`
	EndTime    clock.Minute `json:"end_time" db:"end_time"`
	Weekdays   []int        `json:"weekdays,omitempty" db:"-"` // breaks only; 0 = Sunday
	CreatedBy  string       `json:"created_by" db:"created_by"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"` // UTC
}

func (s ClassSlot) IsPeriod() bool { return s.SlotType == SlotPeriod }

func (s ClassSlot) IsBreak() bool { return s.SlotType == SlotBreak }

func (s ClassSlot) Span() clock.Span { return clock.Span{Start: s.StartTime, End: s.EndTime} }

// ActiveOn reports whether the slot recurs on the given weekday.
// Periods recur on every scheduled day.
func (s ClassSlot) ActiveOn(day time.Weekday) bool {
	if s.IsPeriod() {
		return true
	}
	for _, d := range s.Weekdays {
		if d == int(day) {
			return true
		}
	}
	return false
}

// Label names the slot the way the timetable shows it.
func (s ClassSlot) Label() string {
	if s.IsBreak() {
		return s.Name
	}
	return "Period #" + strconv.Itoa(s.SlotNumber)
}

// DaySlotAssignment is what is actually taught in a period on one date.
// StartTime/EndTime snapshot the period's range at save time so cross-class
// checks can compare ranges without loading every class's catalog.
type DaySlotAssignment struct {
	ID           string           `json:"id" db:"id"`
	SchoolID     string           `json:"school_id" db:"school_id"`
	ClassID      string           `json:"class_id" db:"class_id"`
	Date         time.Time        `json:"date" db:"class_date"`
	PeriodNumber int              `json:"period_number" db:"period_number"`
	StartTime    clock.Minute     `json:"start_time" db:"start_time"`
	EndTime      clock.Minute     `json:"end_time" db:"end_time"`
	SubjectID    string           `json:"subject_id,omitempty" db:"subject_id"`
	TeacherID    string           `json:"teacher_id,omitempty" db:"teacher_id"`
	ChapterRef   string           `json:"chapter_ref,omitempty" db:"chapter_ref"`
	Notes        string           `json:"notes,omitempty" db:"notes"`
	Status       AssignmentStatus `json:"status" db:"status"`
	CreatedBy    string           `json:"created_by" db:"created_by"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"` // UTC
}

func (a DaySlotAssignment) Span() clock.Span { return clock.Span{Start: a.StartTime, End: a.EndTime} }

func (a DaySlotAssignment) IsEmpty() bool { return a.SubjectID == "" && a.TeacherID == "" }

// BreakTemplate is a reusable named break preset.
type BreakTemplate struct {
	ID              string    `json:"id" db:"id"`
	SchoolID        string    `json:"school_id" db:"school_id"`
	Name            string    `json:"name" db:"name"`
	DefaultDuration int       `json:"default_duration" db:"default_duration"` // minutes
	CreatedBy       string    `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewSlot contains information needed to add a ClassSlot to a class's catalog.
type NewSlot struct {
	ClassID    string   `json:"class_id" validate:"notblank"`
	Type       SlotType `json:"slot_type" validate:"required,oneof=period break"`
	Start      string   `json:"start" validate:"notblank"`
	Duration   int      `json:"duration"`
	BreakName  string   `json:"break_name"`
	Weekdays   []int    `json:"weekdays" validate:"omitempty,max=7,dive,weekday"`
	TemplateID string   `json:"template_id"`
}

func (ns *NewSlot) clean() {
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.Type = SlotType(core.CleanString(string(ns.Type), true /* lower */))
	ns.BreakName = core.CleanString(ns.BreakName)
	ns.TemplateID = core.CleanString(ns.TemplateID)
	if ns.Type == SlotPeriod {
		ns.BreakName = ""
		ns.Weekdays = nil
	}
}

// Proposal is the subject/teacher/notes a caller wants bound to a period on a date.
type Proposal struct {
	SubjectID  string           `json:"subject_id"`
	TeacherID  string           `json:"teacher_id"`
	ChapterRef string           `json:"chapter_ref"`
	Notes      string           `json:"notes" validate:"max=2000"`
	Status     AssignmentStatus `json:"status" validate:"omitempty,oneof=planned done cancelled"`
}

func (p *Proposal) clean() {
	p.SubjectID = core.CleanString(p.SubjectID)
	p.TeacherID = core.CleanString(p.TeacherID)
	p.ChapterRef = core.CleanString(p.ChapterRef)
	p.Notes = core.CleanString(p.Notes)
	if p.Status == "" {
		p.Status = StatusPlanned
	}
}

type CopyOptions struct {
	IncludeLessons bool     `json:"include_lessons"`
	// IncludeBreaks is accepted but copies nothing: breaks live in the weekly
	// catalog, not in per-date rows.
	IncludeBreaks  bool     `json:"include_breaks"`
	Mode           CopyMode `json:"mode" validate:"required,oneof=replace merge"`
}

type CopyResult struct {
	Written int    `json:"written"`
	Skipped []int  `json:"skipped,omitempty"` // period numbers blocked by a break on the target date
	Info    string `json:"info,omitempty"`
}

// NewBreakTemplate contains information needed to save a BreakTemplate.
type NewBreakTemplate struct {
	Name            string `json:"name" validate:"notblank,max=100"`
	DefaultDuration int    `json:"default_duration" validate:"gt=0,max=1439"`
}

// DayEntry is one row of a resolved day: a period (with its assignment, if any) or a break.
type DayEntry struct {
	Slot       ClassSlot          `json:"slot"`
	Assignment *DaySlotAssignment `json:"assignment,omitempty"`
	// BlockedBy is the break a period overlaps on this weekday; the period cannot be assigned.
	BlockedBy *ClassSlot `json:"blocked_by,omitempty"`
	// Inconsistent flags an assignment stored on a blocked period.
	Inconsistent bool `json:"inconsistent,omitempty"`
}

func (e DayEntry) Assignable() bool { return e.Slot.IsPeriod() && e.BlockedBy == nil }

// DaySchedule is the ordered list of periods and breaks applicable to a class on a date.
type DaySchedule struct {
	ClassID string       `json:"class_id"`
	Date    time.Time    `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	Entries []DayEntry   `json:"entries"`
	// Orphans are assignments whose period no longer exists in the catalog.
	Orphans []DaySlotAssignment `json:"orphans,omitempty"`
}

// Period returns the entry of the given period number.
func (ds DaySchedule) Period(number int) (DayEntry, bool) {
	for _, e := range ds.Entries {
		if e.Slot.IsPeriod() && e.Slot.SlotNumber == number {
			return e, true
		}
	}
	return DayEntry{}, false
}

// sortSlots orders slots by start time; ties put periods before breaks,
// then order by slot number (periods) or name (breaks).
func sortSlots(slots []ClassSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.SlotType != b.SlotType {
			return a.IsPeriod()
		}
		if a.IsPeriod() {
			return a.SlotNumber < b.SlotNumber
		}
		return strings.Compare(a.Name, b.Name) < 0
	})
}

func normalizeWeekdays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}
