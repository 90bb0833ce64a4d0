package engine

import "errors"

// ErrStopped is returned by Settle when the loop has been stopped.
var ErrStopped = errors.New("event loop stopped")
