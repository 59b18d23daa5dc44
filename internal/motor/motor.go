// Package motor drives the dispensing auger with hardware abstraction.
// The real implementation pulses a STEP/DIR stepper driver through the Linux
// GPIO character device. The fake implementation allows testing without
// hardware.
package motor

// Motor controls the dispensing motor. The core only starts and stops it;
// the motion profile lives entirely inside the implementation.
type Motor interface {
	// Dispense starts the motor in the feeding direction. It keeps
	// running until Stop is called.
	Dispense() error

	// Stop halts the motor.
	Stop()

	// Idle reports whether the motor has come to rest.
	Idle() bool

	// Close stops the motor and releases GPIO resources.
	Close() error
}

// Default pin assignments (BCM numbering).
const (
	DefaultPinStep = 2
	DefaultPinDir  = 5
)
