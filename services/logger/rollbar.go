package logsvc

import (
	"log"
	"strings"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
)

// RollbarLogger mirrors every message to a std log.Logger and reports it to rollbar.
// Each logger owns its rollbar client, tagged with the component taken from the
// std logger's prefix ("API", "DB", "ADMIN").
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client

	// the rollbar person is client-wide, so setting it and reporting must not interleave
	mu *sync.Mutex
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger returns a logger reporting to the project configured in conf.
// Reporting is off in debug mode.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(errors.StackTracer)
	client.SetCustom(map[string]interface{}{
		"app":       conf.AppName,
		"component": component(std.Prefix()),
		"timezone":  conf.Timezone,
	})
	client.SetEnabled(!conf.Debug)
	return &RollbarLogger{std: std, client: client, mu: new(sync.Mutex)}
}

func component(prefix string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(prefix), ":"))
}

func (l RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// Flush waits for queued reports to be sent. Short-lived commands call it before exiting.
func (l RollbarLogger) Flush() {
	l.client.Wait()
}

// split separates the caller identity from what rollbar reports.
// The identity's tenant and role join the extras, merged with any extras map in args.
func (l RollbarLogger) split(msg string, args []interface{}) ([]interface{}, core.Identity) {
	var caller core.Identity
	var extras map[string]interface{}
	report := []interface{}{msg}
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Identity:
			if caller.IsZero() {
				caller = a
			}
		case map[string]interface{}:
			if extras == nil {
				extras = make(map[string]interface{}, len(a)+2)
			}
			for k, v := range a {
				extras[k] = v
			}
		default:
			report = append(report, arg)
		}
	}
	if !caller.IsZero() {
		if extras == nil {
			extras = make(map[string]interface{}, 2)
		}
		extras["tenant_id"] = caller.TenantID
		if caller.Role != "" {
			extras["role"] = caller.Role
		}
	}
	if extras != nil {
		report = append(report, extras)
	}
	return report, caller
}

func (l RollbarLogger) report(send func(...interface{}), msg string, args []interface{}) core.Identity {
	report, caller := l.split(msg, args)
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller.IsZero() {
		l.client.ClearPerson()
	} else {
		l.client.SetPerson(caller.UserID, caller.Name, "")
	}
	send(report...)
	return caller
}

func (l RollbarLogger) print(msg string, args []interface{}, caller core.Identity) {
	l.std.Println(msg)
	for _, arg := range args {
		if _, ok := arg.(core.Identity); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
	if !caller.IsZero() {
		l.std.Printf("caller: %s (%s) tenant=%s\n", caller.Name, caller.UserID, caller.TenantID)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.print(msg, args, l.report(l.client.Debug, msg, args))
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.print(msg, args, l.report(l.client.Info, msg, args))
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.print(msg, args, l.report(l.client.Warning, msg, args))
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.print(msg, args, l.report(l.client.Error, msg, args))
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.print(msg, args, l.report(l.client.Critical, msg, args))
	l.Flush()
	l.std.Fatal(msg)
}
