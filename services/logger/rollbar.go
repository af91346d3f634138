package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/ratiba/core"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, core.Actor
// The actor becomes the rollbar person and its school is merged into the extras.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var (
		actor    *core.Actor
		extras   map[string]interface{}
		restArgs = make([]interface{}, 0, len(args))
	)
	for _, arg := range args {
		switch v := arg.(type) {
		case core.Actor:
			if actor == nil { // only set one Actor
				v := v
				actor = &v
			}
		case map[string]interface{}:
			if extras == nil {
				extras = make(map[string]interface{}, len(v)+1)
			}
			for k, val := range v {
				extras[k] = val
			}
		default:
			restArgs = append(restArgs, arg)
		}
	}

	if actor != nil {
		rollbar.SetPerson(actor.ID, actor.ID, "")
		if extras == nil {
			extras = make(map[string]interface{}, 1)
		}
		extras["school_id"] = actor.SchoolID
	} else {
		rollbar.ClearPerson()
	}

	newArgs := make([]interface{}, 0, len(restArgs)+2)
	newArgs = append(newArgs, msg)
	newArgs = append(newArgs, restArgs...)
	if extras != nil {
		newArgs = append(newArgs, extras)
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	l.std.Fatal(msg)
}
