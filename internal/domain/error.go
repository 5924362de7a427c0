package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrMethodNotFound      = errors.New("method not found")
	ErrInvalidToolName     = errors.New("invalid tool name")
	ErrServerNotFound      = errors.New("server not found")
	ErrNoEndpoints         = errors.New("no backend endpoints")
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	ErrTransport           = errors.New("transport failure")
	ErrRegistry            = errors.New("registry request failed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrStoreClosed         = errors.New("mailbox store is closed")
)

// ErrorCode classifies a gateway failure independently of the wire it is reported on.
type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeUnavailable     ErrorCode = "UNAVAILABLE"
	CodeFailedPrecond   ErrorCode = "FAILED_PRECONDITION"
	CodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	CodeInternal        ErrorCode = "INTERNAL"
)

// Error is a coded failure raised at operation Op.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	prefix := string(e.Code)
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if msg == "" {
		return prefix
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: code, Op: op, Message: msg, Cause: cause}
}

// Wrap codes err at op. An already coded error keeps its code and gains op only if it had none.
func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if !errors.As(err, &coded) {
		return E(code, op, "", err)
	}
	if coded.Op != "" || op == "" {
		return coded
	}
	clone := *coded
	clone.Op = op
	return &clone
}

// CodeFrom reports the code carried by err, falling back to the sentinel it wraps.
func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Code != "" {
		return coded.Code, true
	}
	for _, rule := range sentinelCodes {
		if errors.Is(err, rule.sentinel) {
			return rule.code, true
		}
	}
	return "", false
}

var sentinelCodes = []struct {
	sentinel error
	code     ErrorCode
}{
	{ErrInvalidRequest, CodeInvalidArgument},
	{ErrInvalidToolName, CodeInvalidArgument},
	{ErrServerNotFound, CodeNotFound},
	{ErrMethodNotFound, CodeNotFound},
	{ErrSessionNotFound, CodeNotFound},
	{ErrNoEndpoints, CodeUnavailable},
	{ErrTransport, CodeUnavailable},
	{ErrRegistry, CodeUnavailable},
	{ErrStoreClosed, CodeUnavailable},
	{ErrUnsupportedProtocol, CodeFailedPrecond},
	{ErrUnauthorized, CodeUnauthenticated},
}
