package domain

// OutcomeKind labels how a routed tool call ended.
type OutcomeKind string

const (
	OutcomeSuccess             OutcomeKind = "success"
	OutcomeServerNotFound      OutcomeKind = "server_not_found"
	OutcomeBackendUnavailable  OutcomeKind = "backend_unavailable"
	OutcomeUnsupportedProtocol OutcomeKind = "unsupported_protocol"
	OutcomeTransportFailure    OutcomeKind = "transport_failure"
)

// CallResult is a backend tool result narrowed to its text parts.
type CallResult struct {
	Text    []string
	IsError bool
}

// CallOutcome is the explicit result of one routed call.
// Result is meaningful only when Kind is OutcomeSuccess.
type CallOutcome struct {
	Kind   OutcomeKind
	Result CallResult
	Err    error
}

func (o CallOutcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Error returns the failure cause, or nil for a successful call.
func (o CallOutcome) Error() error {
	if o.OK() {
		return nil
	}
	if o.Err != nil {
		return o.Err
	}
	return E(CodeInternal, "call", string(o.Kind), nil)
}

func Succeeded(result CallResult) CallOutcome {
	return CallOutcome{Kind: OutcomeSuccess, Result: result}
}

func Failed(kind OutcomeKind, err error) CallOutcome {
	return CallOutcome{Kind: kind, Err: err}
}
