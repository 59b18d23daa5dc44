//go:build !linux

package motor

import "errors"

// Stepper is not available on non-Linux platforms.
type Stepper struct{}

// NewStepper returns an error on non-Linux platforms.
func NewStepper(pinStep, pinDir int) (*Stepper, error) {
	return nil, errors.New("motor: not supported on this platform (requires Linux)")
}

// Dispense is not implemented on non-Linux platforms.
func (m *Stepper) Dispense() error {
	return errors.New("motor: not supported")
}

// Stop is not implemented on non-Linux platforms.
func (m *Stepper) Stop() {}

// Idle always reports true on non-Linux platforms.
func (m *Stepper) Idle() bool { return true }

// Close is not implemented on non-Linux platforms.
func (m *Stepper) Close() error { return nil }
