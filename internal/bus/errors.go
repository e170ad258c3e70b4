package bus

import "errors"

// Common bus sentinel errors.
var (
	ErrBusNotStarted = errors.New("bus: not started")
	ErrPublishFailed = errors.New("bus: publish failed")
)
