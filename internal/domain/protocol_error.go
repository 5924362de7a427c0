package domain

import (
	"context"
	"encoding/json"
	"errors"
)

const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
	ErrCodeServerError    = -32000
)

// ProtocolError captures JSON-RPC error details for propagation.
type ProtocolError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// ProtocolErrorFrom maps an error to the JSON-RPC error object returned to clients.
func ProtocolErrorFrom(err error) *ProtocolError {
	if err == nil {
		return nil
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return protoErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ProtocolError{Code: ErrCodeServerError, Message: err.Error()}
	}
	code, ok := CodeFrom(err)
	if !ok {
		return &ProtocolError{Code: ErrCodeInternalError, Message: err.Error()}
	}
	return &ProtocolError{Code: code.RPCCode(), Message: err.Error()}
}

// RPCCode is the JSON-RPC error code reported for c.
// Caller mistakes are invalid params; backend and registry faults are server errors.
func (c ErrorCode) RPCCode() int64 {
	switch c {
	case CodeInvalidArgument, CodeNotFound:
		return ErrCodeInvalidParams
	case CodeUnavailable, CodeFailedPrecond, CodeUnauthenticated:
		return ErrCodeServerError
	default:
		return ErrCodeInternalError
	}
}
