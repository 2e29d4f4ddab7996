package neuron

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIndex is returned when a junction or synapse endpoint does
	// not name a live segment, or names the same segment twice.
	ErrInvalidIndex = errors.New("invalid segment index")

	// ErrUnknownTimeConstant is returned for a gate whose tau law is not one
	// of the known kinds.
	ErrUnknownTimeConstant = errors.New("unknown time constant law")

	// ErrInvalidParameter covers degenerate construction parameters such as a
	// zero sigmoid slope or a gate count below one.
	ErrInvalidParameter = errors.New("invalid parameter")

	ErrNonPositiveConcentration = errors.New("non-positive ion concentration")
	ErrNonPositiveTemperature   = errors.New("non-positive temperature")
	ErrZeroConductance          = errors.New("zero total conductance")

	// ErrDiverged is matched by every *DivergenceError.
	ErrDiverged = errors.New("integration diverged")
)

// DivergenceError reports a non-finite voltage produced by a tick.
type DivergenceError struct {
	Segment int
	Voltage float64
	Time    float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("segment %d reached %v mV at t=%gs: %v", e.Segment, e.Voltage, e.Time, ErrDiverged)
}

func (e *DivergenceError) Unwrap() error {
	return ErrDiverged
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
