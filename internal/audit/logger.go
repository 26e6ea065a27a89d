// Package audit emits structured audit events for auth operations. Auditing
// is an explicit stage wherever it happens: services call Log directly and
// the HTTP pipeline carries a dedicated audit middleware, rather than any
// implicit interception.
package audit

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Event is one audit record.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Action    string    `json:"action"`
	User      string    `json:"user,omitempty"`
	Target    string    `json:"target,omitempty"`
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

var auditLogger = zerolog.New(os.Stdout).With().Timestamp().Str("log", "audit").Logger()

// SetOutput redirects audit events, e.g. to a shipped file. Intended for
// wiring at startup, before traffic.
func SetOutput(logger zerolog.Logger) {
	auditLogger = logger
}

// Log records an audit event.
func Log(service, action, user, target, details string, success bool, err error) {
	event := Event{
		Timestamp: time.Now().UTC(),
		Service:   service,
		Action:    action,
		User:      user,
		Target:    target,
		Details:   details,
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}

	auditLogger.Log().
		Str("service", event.Service).
		Str("action", event.Action).
		Str("user", event.User).
		Str("target", event.Target).
		Str("details", event.Details).
		Bool("success", event.Success).
		Str("error", event.Error).
		Msg("audit")
}
