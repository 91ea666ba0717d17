package common

import (
	"fmt"
	"time"

	"github.com/LerianStudio/midaz/common/mlog"
	"github.com/google/uuid"
)

// Severity is the impact level carried by an Error, independent of its Kind.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityMinor    Severity = "MINOR"
	SeverityMajor    Severity = "MAJOR"
	SeverityCritical Severity = "CRITICAL"
	SeverityFatal    Severity = "FATAL"
)

// Kind categorizes an Error so callers can branch on it without string
// matching the message, and so the sanitizer and HTTP layer can look up a
// canned status/user-message for it.
type Kind string

const (
	KindInitialization Kind = "initialization"
	KindResource       Kind = "resource"
	KindCommunication  Kind = "communication"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindProcessing     Kind = "processing"
	KindStorage        Kind = "storage"
	KindExternal       Kind = "external"
	KindConcurrency    Kind = "concurrency"
	KindInternal       Kind = "internal"
	KindTimeout        Kind = "timeout"
	KindUnavailable    Kind = "unavailable"
	KindCircuitBroken  Kind = "circuit_broken"
	KindIO             Kind = "io"
	KindSecurity       Kind = "security"
	KindRateLimit      Kind = "rate_limit"
	KindUnexpected     Kind = "unexpected"
)

// titleForKind mirrors the Display impl on the original ErrorKind enum.
func titleForKind(k Kind) string {
	switch k {
	case KindInitialization:
		return "Initialization Error"
	case KindResource:
		return "Resource Error"
	case KindCommunication:
		return "Communication Error"
	case KindAuthentication:
		return "Authentication Error"
	case KindAuthorization:
		return "Authorization Error"
	case KindValidation:
		return "Validation Error"
	case KindProcessing:
		return "Processing Error"
	case KindStorage:
		return "Storage Error"
	case KindExternal:
		return "External Service Error"
	case KindConcurrency:
		return "Concurrency Error"
	case KindInternal:
		return "Internal Server Error"
	case KindTimeout:
		return "Timeout Error"
	case KindUnavailable:
		return "Service Unavailable Error"
	case KindCircuitBroken:
		return "Circuit Breaker Open Error"
	case KindIO:
		return "I/O Error"
	case KindSecurity:
		return "Security Error"
	case KindRateLimit:
		return "Rate Limit Error"
	default:
		return "Unexpected Error"
	}
}

// Error is the structured, correlation-aware error type every component in
// this module returns instead of a bare error string. It is deliberately
// not a Rust-style tagged union: Kind stays a flat enum and a per-service
// error gets its distinguishing name from Service, not from the Kind itself.
type Error struct {
	ID            uuid.UUID      `json:"id"`
	Kind          Kind           `json:"kind"`
	Message       string         `json:"message"`
	Timestamp     time.Time      `json:"timestamp"`
	Severity      Severity       `json:"severity"`
	Service       string         `json:"service,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Code          string         `json:"code,omitempty"`
	UserMessage   string         `json:"user_message,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	Transient     bool           `json:"transient"`
	Reported      bool           `json:"-"`

	cause error
}

// New creates an error with Major severity. It takes no context, so it
// leaves CorrelationID empty; NewWithCorrelation stamps the bound id.
// Communication, timeout, rate-limit and circuit-broken errors start out
// transient.
func New(kind Kind, message string) *Error {
	return &Error{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Severity:  SeverityMajor,
		Context:   make(map[string]any),
		Transient: kind == KindCommunication || kind == KindTimeout || kind == KindRateLimit || kind == KindCircuitBroken,
	}
}

// NewWithCorrelation is New, but stamps the correlation id bound on ctx.
func NewWithCorrelation(ctx CorrelationCarrier, kind Kind, message string) *Error {
	e := New(kind, message)
	e.CorrelationID = CorrelationIDFrom(ctx)

	return e
}

func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

func (e *Error) WithService(service string) *Error {
	e.Service = service
	return e
}

func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

func (e *Error) WithUserMessage(message string) *Error {
	e.UserMessage = message
	return e
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// WithTransient marks the error retryable; callers driving a retry loop
// (see pkg/mretry) gate on this flag rather than inspecting Kind.
func (e *Error) WithTransient() *Error {
	e.Transient = true
	return e
}

// MarkReported flips Reported so a downstream pipeline does not double-count
// the same error instance.
func (e *Error) MarkReported() {
	e.Reported = true
}

// Report logs e at a level derived from Severity and flips Reported. It is
// a no-op on an already-reported error, so a handler that both reports and
// returns the same *Error up the stack cannot double-log it.
func (e *Error) Report(logger mlog.Logger) {
	if e.Reported {
		return
	}

	fields := logger.WithFields(
		"error_id", e.ID.String(),
		"kind", string(e.Kind),
		"severity", string(e.Severity),
		"correlation_id", e.CorrelationID,
		"service", e.Service,
	)

	switch e.Severity {
	case SeverityFatal, SeverityCritical:
		fields.Error(e.Error())
	case SeverityMajor:
		fields.Warn(e.Error())
	default:
		fields.Info(e.Error())
	}

	e.MarkReported()
}

// IsTransient reports whether a retry might succeed.
func (e *Error) IsTransient() bool {
	return e.Transient
}

// Clone copies every field except cause, matching the original type's
// manual Clone impl: clones must stay cheap and serialization-friendly.
func (e *Error) Clone() *Error {
	ctx := make(map[string]any, len(e.Context))
	for k, v := range e.Context {
		ctx[k] = v
	}

	return &Error{
		ID:            e.ID,
		Kind:          e.Kind,
		Message:       e.Message,
		Timestamp:     e.Timestamp,
		Severity:      e.Severity,
		Service:       e.Service,
		CorrelationID: e.CorrelationID,
		Code:          e.Code,
		UserMessage:   e.UserMessage,
		Context:       ctx,
		Transient:     e.Transient,
		Reported:      e.Reported,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s: %s", e.Severity, titleForKind(e.Kind), e.Message)

	if e.Code != "" {
		s += fmt.Sprintf(" (Code: %s)", e.Code)
	}

	if e.Service != "" {
		s += fmt.Sprintf(" [Service: %s]", e.Service)
	}

	if e.CorrelationID != "" {
		s += fmt.Sprintf(" [CorrelationID: %s]", e.CorrelationID)
	}

	return s
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Sanitize returns the externally-safe rendition of e. See sanitize.go.
func (e *Error) Sanitize() *Error {
	return SanitizeError(e)
}
