// Package logsvc reports log entries to Rollbar and mirrors them on a standard logger.
package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/access"
	"github.com/trezcool/escuela/core/user"
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
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close flushes the pending Rollbar reports.
func (l RollbarLogger) Close() {
	rollbar.Close()
}

// person is who an entry is about: a full profile or a request's caller.
type person struct {
	id, name, email string
	role            access.Role
	schoolID        string
}

func personOf(arg interface{}) (person, bool) {
	switch v := arg.(type) {
	case user.User:
		return person{id: v.ID, name: v.DisplayName, email: v.Email, role: v.Role, schoolID: v.SchoolID}, v.ID != ""
	case access.Caller:
		return person{id: v.UserID, role: v.Role, schoolID: v.SchoolID}, v.UserID != ""
	}
	return person{}, false
}

// split separates the person from the other args and folds every extra data map,
// plus the person's role and school, into a single map.
func split(args []interface{}) (*person, []interface{}, map[string]interface{}) {
	var (
		who   *person
		rest  = make([]interface{}, 0, len(args))
		extra map[string]interface{}
	)
	addExtra := func(k string, v interface{}) {
		if extra == nil {
			extra = make(map[string]interface{})
		}
		extra[k] = v
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case user.User, access.Caller:
			if p, ok := personOf(v); ok && who == nil { // only one person per entry
				who = &p
			}
		case map[string]interface{}:
			for k, val := range v {
				addExtra(k, val)
			}
		default:
			rest = append(rest, arg)
		}
	}
	if who != nil {
		addExtra("role", who.role.String())
		if who.schoolID != "" {
			addExtra("school_id", who.schoolID)
		}
	}
	return who, rest, extra
}

// expected fmt: msg | error, map[string]interface{}, user.User or access.Caller
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	who, rest, extra := split(args)
	if who != nil {
		rollbar.SetPerson(who.id, who.name, who.email)
	} else {
		rollbar.ClearPerson()
	}

	newArgs := make([]interface{}, 0, len(rest)+2)
	newArgs = append(newArgs, msg)
	newArgs = append(newArgs, rest...)
	if extra != nil {
		newArgs = append(newArgs, extra)
	}
	return newArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	who, rest, extra := split(args)
	if who != nil {
		l.std.Printf("%s: %s [user=%s role=%s]", level, msg, who.id, who.role)
	} else {
		l.std.Printf("%s: %s", level, msg)
	}
	for _, arg := range rest {
		l.std.Printf("%+v\n", arg)
	}
	if extra != nil {
		l.std.Printf("%+v\n", extra)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
