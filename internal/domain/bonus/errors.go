package bonus

import "errors"

// ErrInvalidRate is returned for a bonus rate outside [0, 100] or not a number.
var ErrInvalidRate = errors.New("bonus rate must be between 0 and 100")
