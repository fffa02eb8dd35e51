package eventstream

import "errors"

var (
	// ErrNilEvent indicates a nil story event was provided to a publisher.
	ErrNilEvent = errors.New("nil story event")

	// ErrClosed indicates a publish on a closed publisher.
	ErrClosed = errors.New("publisher closed")
)
