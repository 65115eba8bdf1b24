package llm

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrInvalidInput is returned when input is rejected before calling upstream,
	// e.g. text exceeding the embedding token budget.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamTimeout is returned when the upstream API does not respond in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstream is returned for any other upstream API failure.
	ErrUpstream = errors.New("upstream error")
)

// classifyTransportError maps a transport-level error to the package taxonomy.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUpstreamTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrUpstreamTimeout
	}
	return ErrUpstream
}
