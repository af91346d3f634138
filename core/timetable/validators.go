package timetable

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "weekdays must be between 0 (Sunday) and 6 (Saturday)"

	breakNameTag  = "breakname"
	breakNameText = "a break needs a name"

	durationTag  = "duration"
	durationText = "duration must be a positive number of minutes"

	subjectTeacherPairTag  = "subject_teacher_pair"
	subjectTeacherPairText = "subject and teacher must be set together"
)

// InitValidators registers the timetable validation rules on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	validate.RegisterStructValidation(timetableStructValidation, NewSlot{}, Proposal{})
	core.RegisterCustomTranslation(validate, translator, breakNameTag, breakNameText)
	core.RegisterCustomTranslation(validate, translator, durationTag, durationText)
	core.RegisterCustomTranslation(validate, translator, subjectTeacherPairTag, subjectTeacherPairText)
}

// Custom Validators

func weekdayValidation(fl validator.FieldLevel) bool {
	d := fl.Field().Int()
	return d >= 0 && d <= 6
}

func timetableStructValidation(sl validator.StructLevel) {
	switch v := sl.Current().Interface().(type) {
	case NewSlot:
		validateNewSlot(v, sl)
	case Proposal:
		validateSubjectTeacherPair(v, sl)
	}
}

// validateNewSlot checks the fields a template can fill in: they are only required without one.
func validateNewSlot(ns NewSlot, sl validator.StructLevel) {
	if ns.TemplateID != "" && ns.Type == SlotBreak {
		if ns.Duration < 0 {
			sl.ReportError(ns.Duration, "duration", "Duration", durationTag, "")
		}
		return
	}
	if ns.Duration <= 0 {
		sl.ReportError(ns.Duration, "duration", "Duration", durationTag, "")
	}
	if ns.Type == SlotBreak && core.CleanString(ns.BreakName) == "" {
		sl.ReportError(ns.BreakName, "break_name", "BreakName", breakNameTag, "")
	}
}

// validateSubjectTeacherPair checks that subject and teacher are both set or both empty.
func validateSubjectTeacherPair(p Proposal, sl validator.StructLevel) {
	hasSubject := core.CleanString(p.SubjectID) != ""
	hasTeacher := core.CleanString(p.TeacherID) != ""
	if hasSubject != hasTeacher {
		if hasSubject {
			sl.ReportError(p.TeacherID, "teacher_id", "TeacherID", subjectTeacherPairTag, "")
		} else {
			sl.ReportError(p.SubjectID, "subject_id", "SubjectID", subjectTeacherPairTag, "")
		}
	}
}

func isIncompletePair(err error) bool {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	for _, fe := range vErrs {
		if fe.Tag() == subjectTeacherPairTag {
			return true
		}
	}
	return false
}
