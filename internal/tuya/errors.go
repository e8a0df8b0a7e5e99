package tuya

import (
	"errors"
	"fmt"
)

// Domain-specific errors for transport operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDeviceUnreachable is returned when the transport itself fails:
	// the OpenAPI endpoint cannot be reached, or the MQTT relay refuses
	// the publish.
	ErrDeviceUnreachable = errors.New("tuya: device unreachable")

	// ErrCommandTimeout is returned when the LAN relay does not
	// acknowledge a command or answer a status request in time.
	ErrCommandTimeout = errors.New("tuya: command timed out")
)

// APIError carries a failure envelope from the vendor API or the relay
// agent. Msg is the vendor's own wording and is passed through to HTTP
// clients unchanged.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tuya: api error %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("tuya: api error: %s", e.Msg)
}
