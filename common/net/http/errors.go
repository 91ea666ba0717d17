package http

import (
	"errors"

	"github.com/LerianStudio/midaz/common"
	"github.com/gofiber/fiber/v2"
)

// ResponseError is a struct used to return plain errors to the client.
type ResponseError struct {
	Code    int    `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Error returns the message of the ResponseError.
func (r ResponseError) Error() string {
	return r.Message
}

// ValidationKnownFieldsError records an error that occurred during a validation of known fields.
type ValidationKnownFieldsError struct {
	EntityType string           `json:"entityType,omitempty"`
	Title      string           `json:"title,omitempty"`
	Code       string           `json:"code,omitempty"`
	Message    string           `json:"message,omitempty"`
	Fields     FieldValidations `json:"fields,omitempty"`
}

// Error returns the error message for a ValidationKnownFieldsError.
func (r ValidationKnownFieldsError) Error() string {
	return r.Message
}

// FieldValidations is a map of known fields and their validation errors.
type FieldValidations map[string]string

// ValidationUnknownFieldsError records an error that occurred during a validation of unknown fields.
type ValidationUnknownFieldsError struct {
	EntityType string        `json:"entityType,omitempty"`
	Title      string        `json:"title,omitempty"`
	Code       string        `json:"code,omitempty"`
	Message    string        `json:"message,omitempty"`
	Fields     UnknownFields `json:"fields,omitempty"`
}

// Error returns the error message for a ValidationUnknownFieldsError.
func (r ValidationUnknownFieldsError) Error() string {
	return r.Message
}

// UnknownFields is a map of unknown fields and their error messages.
type UnknownFields map[string]any

// errorEnvelope is the `{error:{code, message, status, id, type}}` shape every
// HTTP-facing surface renders, regardless of which component raised the
// error.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
}

// safeKinds are considered safe to surface verbatim; every other kind is
// replaced with the sanitized user message before it crosses the boundary.
var safeKinds = map[common.Kind]bool{
	common.KindValidation:     true,
	common.KindAuthentication: true,
	common.KindRateLimit:      true,
	common.KindTimeout:        true,
	common.KindUnavailable:    true,
	common.KindResource:       true,
}

// statusForKind maps an error Kind to the HTTP status the transport layer
// renders for it. It extends the sanitizer's table in common/sanitize.go
// with 403 (authorization), 404 (resource) and 503 (circuit_broken).
// Unlisted kinds fall back to 500.
func statusForKind(kind common.Kind) int {
	switch kind {
	case common.KindAuthentication:
		return fiber.StatusUnauthorized
	case common.KindValidation:
		return fiber.StatusBadRequest
	case common.KindRateLimit:
		return fiber.StatusTooManyRequests
	case common.KindTimeout:
		return fiber.StatusRequestTimeout
	case common.KindUnavailable, common.KindCircuitBroken:
		return fiber.StatusServiceUnavailable
	case common.KindAuthorization:
		return fiber.StatusForbidden
	case common.KindResource:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// renderControlPlaneError renders a *common.Error through the external
// response shape, replacing the message with the sanitized user-facing one
// unless the kind is on the safe allowlist.
func renderControlPlaneError(c *fiber.Ctx, e *common.Error) error {
	e = e.Sanitize()
	status := statusForKind(e.Kind)

	message := e.UserMessage
	if safeKinds[e.Kind] {
		message = e.Message
	}

	if message == "" {
		message = "an internal error occurred"
	}

	return c.Status(status).JSON(errorEnvelope{Error: errorBody{
		Code:    e.Code,
		Message: message,
		Status:  status,
		ID:      e.ID.String(),
		Type:    string(e.Kind),
	}})
}

// WithError renders err as the standard error envelope, dispatching on the
// control-plane Error's Kind when available and falling back to the
// fiber/legacy error shapes otherwise.
func WithError(c *fiber.Ctx, err error) error {
	var cpErr *common.Error
	if errors.As(err, &cpErr) {
		return renderControlPlaneError(c, cpErr)
	}

	switch e := err.(type) {
	case ValidationKnownFieldsError:
		return BadRequest(c, e)
	case ValidationUnknownFieldsError:
		return BadRequest(c, e)
	case ResponseError:
		return JSONResponseError(c, e)
	case *fiber.Error:
		return c.Status(e.Code).JSON(errorEnvelope{Error: errorBody{
			Message: e.Message,
			Status:  e.Code,
			Type:    string(common.KindUnexpected),
		}})
	default:
		return InternalServerError(c, "", "internal error", err.Error())
	}
}

// HTTPErrorHandler is installed as the fiber app's ErrorHandler so every
// handler in the process renders errors through the same envelope, whether
// they return a *common.Error or a plain error.
func HTTPErrorHandler(c *fiber.Ctx, err error) error {
	return WithError(c, err)
}

// NotFound writes a 404 error envelope.
func NotFound(c *fiber.Ctx, code, title, message string) error {
	return writeEnvelope(c, fiber.StatusNotFound, code, title, message)
}

// Conflict writes a 409 error envelope.
func Conflict(c *fiber.Ctx, code, title, message string) error {
	return writeEnvelope(c, fiber.StatusConflict, code, title, message)
}

// BadRequest writes a 400 error envelope carrying the given error body.
func BadRequest(c *fiber.Ctx, body error) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorEnvelope{Error: errorBody{
		Message: body.Error(),
		Status:  fiber.StatusBadRequest,
		Type:    string(common.KindValidation),
	}})
}

// UnprocessableEntity writes a 422 error envelope.
func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return writeEnvelope(c, fiber.StatusUnprocessableEntity, code, title, message)
}

// Unauthorized writes a 401 error envelope.
func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return writeEnvelope(c, fiber.StatusUnauthorized, code, title, message)
}

// Forbidden writes a 403 error envelope.
func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return writeEnvelope(c, fiber.StatusForbidden, code, title, message)
}

// InternalServerError writes a 500 error envelope.
func InternalServerError(c *fiber.Ctx, code, title, message string) error {
	return writeEnvelope(c, fiber.StatusInternalServerError, code, title, message)
}

// JSONResponseError renders a ResponseError using its own Code as the HTTP
// status.
func JSONResponseError(c *fiber.Ctx, r ResponseError) error {
	status := r.Code
	if status < 100 || status > 599 {
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(errorEnvelope{Error: errorBody{
		Message: r.Message,
		Status:  status,
		Type:    r.Title,
	}})
}

func writeEnvelope(c *fiber.Ctx, status int, code, title, message string) error {
	return c.Status(status).JSON(errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Status:  status,
		Type:    title,
	}})
}
