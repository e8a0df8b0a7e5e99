package socket

import "errors"

// Domain errors for the socket package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, socket.ErrInvalidOutlet) {
//	    // reject before touching the device
//	}
var (
	// ErrInvalidOutlet is returned when an outlet number is not a
	// positive integer within the configured layout.
	ErrInvalidOutlet = errors.New("socket: invalid outlet")
)
