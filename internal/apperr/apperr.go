// Package apperr defines the application error taxonomy and the central
// Echo error handler that renders every failure as the JSON envelope
//
//	{"error": {"message": ..., "type": ..., "extra": {...}}}
//
// Handlers return *Error values instead of writing responses themselves;
// anything else that escapes a handler is treated as an internal error and
// rendered with a generic message while the detail is logged server-side.
package apperr

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind names an error category.  The string value is what clients see in
// the envelope's "type" field.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindInvalidCredentials Kind = "InvalidCredentials"
	KindBlocked            Kind = "Blocked"
	KindInvalidToken       Kind = "InvalidToken"
	KindSessionNotFound    Kind = "SessionNotFound"
	KindSessionExpired     Kind = "SessionExpired"
	KindForbidden          Kind = "Forbidden"
	KindNotFound           Kind = "NotFoundError"
	KindDatabase           Kind = "DatabaseError"
	KindInternal           Kind = "InternalError"
)

// statusOf maps each kind to its HTTP status code.
func statusOf(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindInvalidToken, KindSessionNotFound, KindSessionExpired:
		return http.StatusUnauthorized
	case KindBlocked, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a client-safe message and optional extra detail.
type Error struct {
	Kind    Kind
	Message string
	Extra   map[string]any
	cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int { return statusOf(e.Kind) }

// WithExtra attaches structured detail that is safe to return to clients.
func (e *Error) WithExtra(extra map[string]any) *Error {
	e.Extra = extra
	return e
}

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func Validation(msg string) *Error         { return newErr(KindValidation, msg) }
func InvalidCredentials(msg string) *Error { return newErr(KindInvalidCredentials, msg) }
func Blocked(msg string) *Error            { return newErr(KindBlocked, msg) }
func InvalidToken(msg string) *Error       { return newErr(KindInvalidToken, msg) }
func SessionNotFound(msg string) *Error    { return newErr(KindSessionNotFound, msg) }
func SessionExpired(msg string) *Error     { return newErr(KindSessionExpired, msg) }
func Forbidden(msg string) *Error          { return newErr(KindForbidden, msg) }
func NotFound(msg string) *Error           { return newErr(KindNotFound, msg) }

// Database wraps a store-layer failure.  The cause is logged by the error
// handler; the client only ever sees the generic message.
func Database(msg string, cause error) *Error {
	return &Error{Kind: KindDatabase, Message: msg, cause: cause}
}

// envelope is the wire shape of every error response.
type envelope struct {
	Error body `json:"error"`
}

type body struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// HTTPErrorHandler returns an Echo error handler that renders *Error values
// with their kind's status and wraps everything else as a generic 500.
func HTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ae *Error
		if errors.As(err, &ae) {
			if ae.Kind == KindDatabase || ae.Kind == KindInternal {
				log.Printf("%s at %s %s: %v", ae.Kind, c.Request().Method, c.Path(), errOrSelf(ae))
			}
			writeEnvelope(c, ae.Status(), ae.Kind, ae.Message, ae.Extra)
			return
		}

		// Echo's own errors (404 route miss, bind failures raised as
		// *echo.HTTPError) keep their status but adopt the envelope.
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			kind := KindInternal
			switch he.Code {
			case http.StatusBadRequest:
				kind = KindValidation
			case http.StatusUnauthorized:
				kind = KindInvalidToken
			case http.StatusForbidden:
				kind = KindForbidden
			case http.StatusNotFound:
				kind = KindNotFound
			}
			writeEnvelope(c, he.Code, kind, msg, nil)
			return
		}

		// Catch-all: never leak internals to the client.
		log.Printf("unhandled error at %s %s: %v", c.Request().Method, c.Path(), err)
		writeEnvelope(c, http.StatusInternalServerError, KindInternal, "internal server error", nil)
	}
}

func writeEnvelope(c echo.Context, status int, kind Kind, msg string, extra map[string]any) {
	resp := envelope{Error: body{Message: msg, Type: string(kind), Extra: extra}}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, resp)
}

func errOrSelf(e *Error) error {
	if e.cause != nil {
		return e.cause
	}
	return e
}
