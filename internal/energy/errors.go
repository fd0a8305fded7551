package energy

import "errors"

// Domain-specific errors for the energy store.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDeviceNotFound is returned when a device lookup matches no rows.
	ErrDeviceNotFound = errors.New("energy: device not found")

	// ErrCircuitNotFound is returned when a circuit lookup matches no rows.
	ErrCircuitNotFound = errors.New("energy: circuit not found")

	// ErrInvalidCircuit is returned when a reading references a circuit
	// number outside the panel's range or an inactive circuit.
	ErrInvalidCircuit = errors.New("energy: invalid circuit")

	// ErrNoRates is returned when no active billing rates are configured.
	ErrNoRates = errors.New("energy: no active billing rates")
)
