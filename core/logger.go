package core

// Logger is any structured logger the services report to.
// args may carry errors, map[string]interface{} extras and an Actor.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies who performs a write and for which school.
// It is passed explicitly to every write so the engine never reads ambient session state.
type Actor struct {
	ID       string `json:"id"`
	SchoolID string `json:"school_id"`
}
