package eyes

import "errors"

// ErrBadLED is returned when an LED device reports an unusable range.
var ErrBadLED = errors.New("eyes: unusable led device")
