package authcore

import (
	"io"

	"github.com/webstack/authcore/internal/audit"
)

// Public aliases for the audit event model, so hosts can implement sinks
// without reaching into internal packages.
type (
	AuditEvent = audit.Event
	AuditSink  = audit.Sink
)

// Audit event types, one per security-relevant manager operation.
const (
	AuditRegister        = audit.TypeRegister
	AuditLoginSuccess    = audit.TypeLoginSuccess
	AuditLoginFailure    = audit.TypeLoginFailure
	AuditAccountLocked   = audit.TypeAccountLocked
	AuditLogout          = audit.TypeLogout
	AuditSessionRestored = audit.TypeSessionRestored
	AuditRememberLogin   = audit.TypeRememberLogin
	AuditPasswordChange  = audit.TypePasswordChange
	AuditProfileUpdate   = audit.TypeProfileUpdate
	AuditStorageError    = audit.TypeStorageError
)

// NewAuditChannelSink returns a sink that buffers events into a channel.
func NewAuditChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewAuditJSONWriterSink returns a sink that writes one JSON object per
// line to w.
func NewAuditJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
