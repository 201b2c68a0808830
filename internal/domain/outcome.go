package domain

import "errors"

var (
	ErrInvalidValue     = errors.New("sensor value is NaN or infinite")
	ErrNotAuthenticated = errors.New("session not authenticated")
	ErrNotConnected     = errors.New("not connected")
	ErrCircuitOpen      = errors.New("circuit open")
)

// Reason classifies an upload outcome for logs and metrics.
type Reason string

const (
	ReasonOK               Reason = "ok"
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonNotConnected     Reason = "not_connected"
	ReasonTransportFailure Reason = "transport_failure"
	ReasonEncodeFailure    Reason = "encode_failure"
	ReasonCircuitOpen      Reason = "circuit_open"
)

// UploadOutcome reports a single send attempt. It is consumed by the loop
// for logging and never stored.
type UploadOutcome struct {
	Transport string
	Target    string
	Success   bool
	Reason    Reason
	Status    int
	Err       error
}

// Succeeded builds a successful outcome.
func Succeeded(transport, target string, status int) UploadOutcome {
	return UploadOutcome{Transport: transport, Target: target, Success: true, Reason: ReasonOK, Status: status}
}

// Failed builds a failed outcome, deriving the reason from err when it wraps
// one of the package sentinels.
func Failed(transport, target string, status int, err error) UploadOutcome {
	return UploadOutcome{
		Transport: transport,
		Target:    target,
		Reason:    ReasonFor(err),
		Status:    status,
		Err:       err,
	}
}

// ReasonFor maps an error onto a Reason.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonOK
	case errors.Is(err, ErrNotAuthenticated):
		return ReasonNotAuthenticated
	case errors.Is(err, ErrNotConnected):
		return ReasonNotConnected
	case errors.Is(err, ErrCircuitOpen):
		return ReasonCircuitOpen
	default:
		return ReasonTransportFailure
	}
}
