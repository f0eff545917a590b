package delegate

import "errors"

// ErrSendFailed is returned when the bus rejects the delegation message.
var ErrSendFailed = errors.New("failed to send task request")
