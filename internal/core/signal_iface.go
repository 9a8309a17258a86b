package core

import "errors"

var (
	// ErrBackpressure means the outbound queue is full.
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is one encoded outbound message.
type Frame []byte

// SignalConnection abstracts the messaging transport of one client connection.
// Owned by the adapter; the core never closes it except through Close.
type SignalConnection interface {
	// TrySend queues a frame without blocking.
	TrySend(Frame) error
	// Ping issues a liveness probe; the adapter reports the answer via the registry.
	Ping() error
	// Close terminates the transport with a close code and reason.
	Close(code int, reason string)
}
