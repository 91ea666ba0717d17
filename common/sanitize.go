package common

import (
	"regexp"
	"strings"
)

// sensitivePatterns mirrors the Rust sanitizer's regex list, except that the
// bearer pattern captures the keyword rather than the token so the keyword
// survives redaction; Go's RE2 engine has no backreferences or lookaround,
// but none of these patterns need them.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|credential)s?["']?\s*[=:]\s*["']?([^"'\s]+)`),
	regexp.MustCompile(`(?i)(bearer)\s+[a-zA-Z0-9._-]+`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
	regexp.MustCompile(`(\+\d{1,3}[\s-])?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`),
	regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`),
	regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b|\b\d{13,16}\b`),
}

var sensitiveKeys = map[string]bool{
	"password": true, "secret": true, "token": true, "key": true,
	"credential": true, "auth": true, "ssn": true, "social_security": true,
	"credit_card": true, "cc_number": true, "cvv": true, "private_key": true,
	"certificate": true, "api_key": true, "access_token": true,
	"refresh_token": true, "session_id": true, "cookie": true, "hash": true,
	"salt": true,
}

// isSensitiveKey reports whether a context key should be dropped outright,
// checking both exact match and substring containment like the original.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)

	if sensitiveKeys[lower] {
		return true
	}

	for k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}

	return false
}

// sanitizeMessage redacts every sensitive pattern match in s. Where the
// pattern has a capture group (the credential key name, or the Bearer
// keyword), that group is kept and only the value is replaced:
// "password=x" becomes "password=[REDACTED]" and "Bearer x" becomes
// "Bearer [REDACTED]".
func sanitizeMessage(s string) string {
	for _, pattern := range sensitivePatterns {
		s = pattern.ReplaceAllStringFunc(s, func(match string) string {
			groups := pattern.FindStringSubmatch(match)
			if len(groups) > 1 && strings.EqualFold(groups[1], "bearer") {
				return groups[1] + " [REDACTED]"
			}

			if len(groups) > 1 && groups[1] != "" {
				return groups[1] + "=[REDACTED]"
			}

			return "[REDACTED]"
		})
	}

	return s
}

// sanitizeValue redacts an entire value if it matches any sensitive
// pattern, rather than redacting the matched substring in place.
func sanitizeValue(value string) string {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return "[REDACTED]"
		}
	}

	return value
}

// createUserMessage synthesizes a generic, safe message for kinds that
// don't already carry one.
func createUserMessage(e *Error) string {
	switch e.Kind {
	case KindAuthentication:
		return "Authentication failed. Please check your credentials and try again."
	case KindValidation:
		return "The provided data is invalid. Please check your input and try again."
	case KindRateLimit:
		return "Too many requests. Please try again later."
	case KindTimeout:
		return "The operation timed out. Please try again later."
	case KindUnavailable, KindCircuitBroken:
		return "The service is currently unavailable. Please try again later."
	case KindExternal:
		return "An error occurred while communicating with an external service."
	case KindSecurity:
		return "A security issue was detected. Our team has been notified."
	default:
		if e.Severity == SeverityCritical || e.Severity == SeverityFatal {
			return "A critical error occurred. Our team has been notified of the issue."
		}

		return "An unexpected error occurred. Please try again later."
	}
}

// SanitizeError returns a new Error safe to log or forward to a less
// trusted boundary: the message has sensitive substrings redacted,
// sensitive context keys are dropped entirely, and every remaining
// string-valued context entry is redacted if it itself looks sensitive.
func SanitizeError(e *Error) *Error {
	sanitized := &Error{
		ID:            e.ID,
		Kind:          e.Kind,
		Message:       sanitizeMessage(e.Message),
		Timestamp:     e.Timestamp,
		Severity:      e.Severity,
		Service:       e.Service,
		CorrelationID: e.CorrelationID,
		Code:          e.Code,
		Transient:     e.Transient,
		Context:       make(map[string]any),
	}

	if sanitized.Code == "" {
		sanitized.Code = "UNKNOWN"
	}

	if e.UserMessage != "" {
		sanitized.UserMessage = e.UserMessage
	} else {
		sanitized.UserMessage = createUserMessage(e)
	}

	for key, value := range e.Context {
		if isSensitiveKey(key) {
			continue
		}

		if s, ok := value.(string); ok {
			sanitized.Context[key] = sanitizeValue(s)
		} else {
			sanitized.Context[key] = value
		}
	}

	return sanitized
}

// safeExternalKinds are considered safe to surface to an end user or a
// less trusted caller without going through the generic sanitize pipeline
// first (their message never carries state the sanitizer would need to
// strip).
var safeExternalKinds = map[Kind]bool{
	KindValidation:     true,
	KindAuthentication: true,
	KindRateLimit:      true,
	KindTimeout:        true,
	KindUnavailable:    true,
}

// IsSafeForExternal reports whether e's Kind is on the allowlist of kinds
// that can be shown to an external caller without further scrubbing.
func IsSafeForExternal(e *Error) bool {
	return safeExternalKinds[e.Kind]
}

// ExternalErrorResponse is the `{error:{...}}` JSON shape every HTTP-facing
// surface in this module renders.
type ExternalErrorResponse struct {
	Error ExternalErrorBody `json:"error"`
}

type ExternalErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
}

// statusForKind maps a Kind to the HTTP status the original sanitizer's
// create_external_error_response assigns it; unlisted kinds fall back to
// 500, matching the Rust `_ => 500` arm.
func statusForKind(kind Kind) int {
	switch kind {
	case KindAuthentication:
		return 401
	case KindValidation:
		return 400
	case KindRateLimit:
		return 429
	case KindTimeout:
		return 408
	case KindUnavailable:
		return 503
	default:
		return 500
	}
}

// CreateExternalErrorResponse sanitizes e and shapes it for an external API
// response.
func CreateExternalErrorResponse(e *Error) ExternalErrorResponse {
	sanitized := SanitizeError(e)

	return ExternalErrorResponse{Error: ExternalErrorBody{
		Code:    sanitized.Code,
		Message: sanitized.UserMessage,
		Status:  statusForKind(e.Kind),
		ID:      sanitized.ID.String(),
		Type:    string(sanitized.Kind),
	}}
}
