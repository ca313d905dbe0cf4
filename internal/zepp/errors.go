package zepp

import "fmt"

// RateLimitedError reports a 429 from the password exchange. The vendor
// enforces undocumented, possibly daily, limits; retrying blindly can
// prolong a lockout, so this error is always terminal for the run.
type RateLimitedError struct {
	RetryAfter string
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter == "" {
		return "zepp: rate limited (429), Retry-After not provided"
	}
	return fmt.Sprintf("zepp: rate limited (429), Retry-After: %s", e.RetryAfter)
}

// ProtocolError reports a transport-level success whose payload is
// missing something the handshake requires. Step and Reason identify
// exactly what was absent so a log line is enough to diagnose.
type ProtocolError struct {
	Step   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("zepp: %s: %s", e.Step, e.Reason)
}

// TransportError reports a failed HTTP exchange: a non-2xx status or a
// network-level failure (timeout, DNS, reset). Status is 0 when the
// request never produced a response.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zepp: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("zepp: %s: unexpected status %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a day whose summary blob failed to base64-decode
// or parse as JSON. Unlike the errors above it is non-fatal: the day is
// skipped and retrieval continues.
type DecodeError struct {
	Date string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("zepp: decode summary for %s: %v", e.Date, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
