package controller

import (
	"fmt"

	"github.com/dotbot-project/fleet-controller/internal/robot"
)

// ErrUnknownDotBot is returned by every outbound command operation when the
// destination address has no record in the registry (spec.md §4.3: "the
// controller only addresses robots it has seen advertise").
type ErrUnknownDotBot struct {
	Address robot.Address
}

func (e *ErrUnknownDotBot) Error() string {
	return fmt.Sprintf("controller: unknown dotbot %s", e.Address)
}
