package feeder

import (
	"log"
	"time"

	"github.com/inbarayasoo/smart-dog-feeder/internal/motor"
	"github.com/inbarayasoo/smart-dog-feeder/internal/schedule"
)

// Dispense tuning.
const (
	// DispenseTimeout bounds a single dispense run; a jammed auger or a
	// stuck scale must not spin the motor forever.
	DispenseTimeout = 45 * time.Second

	// dispenseTolerance stops the motor slightly early so the food still
	// falling lands near the target amount.
	dispenseTolerance = 2.0 // grams
)

// dispenseState is the dispenser's state machine position.
type dispenseState int

const (
	dispenseIdle dispenseState = iota
	dispenseRunning
	dispenseStopping
)

// Result describes a completed (or aborted) dispense run.
type Result struct {
	Feeding    schedule.Feeding
	PrevWeight float64
	// CurrentWeight is the bowl weight once the motor has stopped.
	CurrentWeight float64
	// TimedOut is true when the run was aborted by the timeout.
	TimedOut bool
}

// Dispenser runs one feeding at a time: start the motor, watch the bowl
// weight climb, stop at the target amount (or on timeout), then wait for the
// motor to come to rest before reporting the result.
type Dispenser struct {
	motor motor.Motor

	state     dispenseState
	feeding   schedule.Feeding
	prev      float64
	startedAt time.Time
	timedOut  bool
}

// NewDispenser creates a Dispenser over the given motor.
func NewDispenser(m motor.Motor) *Dispenser {
	return &Dispenser{motor: m}
}

// Busy reports whether a dispense run is in progress.
func (d *Dispenser) Busy() bool {
	return d.state != dispenseIdle
}

// Start begins dispensing the given feeding. prevWeight is the bowl weight
// before any food drops. Starting while busy is ignored.
func (d *Dispenser) Start(now time.Time, feeding schedule.Feeding, prevWeight float64) error {
	if d.state != dispenseIdle {
		return nil
	}
	if err := d.motor.Dispense(); err != nil {
		return err
	}

	d.state = dispenseRunning
	d.feeding = feeding
	d.prev = prevWeight
	d.startedAt = now
	d.timedOut = false
	log.Printf("dispense: started (%s, target %dg)", feeding.MealName, feeding.AmountGrams)
	return nil
}

// Tick advances the state machine with the current bowl weight. It returns
// a Result exactly once per run, on the tick where the motor has come to
// rest after stopping.
func (d *Dispenser) Tick(now time.Time, weight float64) (Result, bool) {
	switch d.state {
	case dispenseIdle:
		return Result{}, false

	case dispenseRunning:
		dispensed := weight - d.prev
		target := float64(d.feeding.AmountGrams) - dispenseTolerance

		if dispensed >= target {
			d.motor.Stop()
			d.state = dispenseStopping
			return Result{}, false
		}
		if now.Sub(d.startedAt) >= DispenseTimeout {
			log.Printf("dispense: timed out after %.1fg of %dg", dispensed, d.feeding.AmountGrams)
			d.timedOut = true
			d.motor.Stop()
			d.state = dispenseStopping
		}
		return Result{}, false

	case dispenseStopping:
		if !d.motor.Idle() {
			return Result{}, false
		}
		d.state = dispenseIdle
		res := Result{
			Feeding:       d.feeding,
			PrevWeight:    d.prev,
			CurrentWeight: weight,
			TimedOut:      d.timedOut,
		}
		log.Printf("dispense: done (%s, %.1fg -> %.1fg)", d.feeding.MealName, res.PrevWeight, res.CurrentWeight)
		return res, true
	}

	return Result{}, false
}
