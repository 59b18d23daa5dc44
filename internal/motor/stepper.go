//go:build linux

package motor

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// stepRate is the pulse rate while dispensing. Conservative to reduce
// stalls with a loaded auger.
const stepRate = 350 // steps per second

// Stepper drives a STEP/DIR stepper driver on real hardware.
type Stepper struct {
	chip     *gpiocdev.Chip
	stepLine *gpiocdev.Line
	dirLine  *gpiocdev.Line

	running atomic.Bool
	done    chan struct{}
}

// NewStepper creates a stepper motor on the given STEP and DIR pins.
func NewStepper(pinStep, pinDir int) (*Stepper, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	stepLine, err := chip.RequestLine(pinStep, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request STEP pin %d: %w", pinStep, err)
	}

	dirLine, err := chip.RequestLine(pinDir, gpiocdev.AsOutput(0))
	if err != nil {
		stepLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request DIR pin %d: %w", pinDir, err)
	}

	return &Stepper{
		chip:     chip,
		stepLine: stepLine,
		dirLine:  dirLine,
	}, nil
}

// Dispense starts pulsing in the feeding direction.
func (m *Stepper) Dispense() error {
	if m.running.Load() {
		return nil
	}
	if err := m.dirLine.SetValue(0); err != nil {
		return fmt.Errorf("set DIR: %w", err)
	}

	m.running.Store(true)
	m.done = make(chan struct{})
	go m.pulse(m.done)
	return nil
}

// pulse toggles the STEP line until the motor is stopped. It runs in its own
// goroutine so the driver loop stays free.
func (m *Stepper) pulse(done chan struct{}) {
	defer close(done)

	period := time.Second / (2 * stepRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	level := 0
	for range ticker.C {
		if !m.running.Load() {
			m.stepLine.SetValue(0)
			return
		}
		level ^= 1
		if err := m.stepLine.SetValue(level); err != nil {
			m.running.Store(false)
			m.stepLine.SetValue(0)
			return
		}
	}
}

// Stop halts the motor.
func (m *Stepper) Stop() {
	m.running.Store(false)
}

// Idle reports whether the pulse loop has exited.
func (m *Stepper) Idle() bool {
	if m.running.Load() {
		return false
	}
	if m.done == nil {
		return true
	}
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Close stops the motor and releases GPIO resources.
func (m *Stepper) Close() error {
	m.Stop()
	if m.done != nil {
		<-m.done
	}

	var errs []error
	if err := m.stepLine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close STEP pin: %w", err))
	}
	if err := m.dirLine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close DIR pin: %w", err))
	}
	if err := m.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
