package livefeed

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected         = errors.New("live feed is not connected")
	ErrMaxReconnectAttempts = errors.New("max reconnection attempts reached")
	ErrClientDisconnected   = errors.New("live feed client was disconnected")
)

// DecodeError is returned for inbound frames that are not a valid envelope.
// The frame is dropped and the connection is unaffected.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding live feed frame: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError covers dial and write failures on the underlying connection
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("live feed %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HandlerError wraps a failure (returned error or panic) from a subscriber
type HandlerError struct {
	Topic Topic
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler: %s", e.Topic, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
