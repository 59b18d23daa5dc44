package feeder

import (
	"errors"
	"testing"
	"time"

	"github.com/inbarayasoo/smart-dog-feeder/internal/motor"
)

func TestDispenseStopsNearTarget(t *testing.T) {
	m := motor.NewFakeMotor()
	d := NewDispenser(m)
	start := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	if err := d.Start(start, testFeeding(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Busy() {
		t.Fatal("dispenser should be busy after Start")
	}
	if m.DispenseCalls != 1 {
		t.Fatalf("dispense calls: got %d, want 1", m.DispenseCalls)
	}

	// Bowl climbs toward 100 + 40g; the motor stops at target minus the
	// tolerance, not at the full target.
	if _, done := d.Tick(start.Add(time.Second), 110); done {
		t.Fatal("done too early")
	}
	if m.StopCalls != 0 {
		t.Fatal("stopped too early")
	}

	if _, done := d.Tick(start.Add(2*time.Second), 138); done {
		t.Fatal("result should wait for the motor to come to rest")
	}
	if m.StopCalls != 1 {
		t.Fatalf("stop calls: got %d, want 1", m.StopCalls)
	}

	res, done := d.Tick(start.Add(3*time.Second), 139)
	if !done {
		t.Fatal("expected a result once the motor is idle")
	}
	if res.TimedOut {
		t.Error("run should not report a timeout")
	}
	if res.PrevWeight != 100 {
		t.Errorf("PrevWeight: got %v, want 100", res.PrevWeight)
	}
	if res.CurrentWeight != 139 {
		t.Errorf("CurrentWeight: got %v, want 139", res.CurrentWeight)
	}
	if res.Feeding.MealName != "breakfast" {
		t.Errorf("feeding: got %+v", res.Feeding)
	}
	if d.Busy() {
		t.Error("dispenser should be idle after the result")
	}

	// The result is reported exactly once.
	if _, done := d.Tick(start.Add(4*time.Second), 139); done {
		t.Error("result reported twice")
	}
}

func TestDispenseWaitsForMotorSpinDown(t *testing.T) {
	m := motor.NewFakeMotor()
	d := NewDispenser(m)
	start := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	if err := d.Start(start, testFeeding(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Tick(start.Add(time.Second), 140) // reaches target, stop issued

	// Simulate the motor still turning after Stop.
	m.Running = true
	if _, done := d.Tick(start.Add(2*time.Second), 141); done {
		t.Fatal("result must wait for the motor to be idle")
	}

	m.Running = false
	res, done := d.Tick(start.Add(3*time.Second), 142)
	if !done {
		t.Fatal("expected a result after spin-down")
	}
	if res.CurrentWeight != 142 {
		t.Errorf("CurrentWeight: got %v, want the settled weight 142", res.CurrentWeight)
	}
}

func TestDispenseTimeout(t *testing.T) {
	m := motor.NewFakeMotor()
	d := NewDispenser(m)
	start := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	if err := d.Start(start, testFeeding(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Jammed auger: the weight never climbs.
	if _, done := d.Tick(start.Add(DispenseTimeout-time.Second), 100); done {
		t.Fatal("done before the timeout")
	}
	if m.StopCalls != 0 {
		t.Fatal("stopped before the timeout")
	}

	if _, done := d.Tick(start.Add(DispenseTimeout), 100); done {
		t.Fatal("result should come one tick after the stop")
	}
	if m.StopCalls != 1 {
		t.Fatalf("stop calls: got %d, want 1", m.StopCalls)
	}

	res, done := d.Tick(start.Add(DispenseTimeout+time.Second), 101)
	if !done {
		t.Fatal("expected a result")
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
	if d.Busy() {
		t.Error("dispenser should be idle after a timeout")
	}
}

func TestStartWhileBusyIgnored(t *testing.T) {
	m := motor.NewFakeMotor()
	d := NewDispenser(m)
	start := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	if err := d.Start(start, testFeeding(), 100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(start.Add(time.Second), testFeeding(), 100); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if m.DispenseCalls != 1 {
		t.Errorf("dispense calls: got %d, want 1", m.DispenseCalls)
	}
}

func TestStartMotorFailure(t *testing.T) {
	m := motor.NewFakeMotor()
	m.DispenseError = errors.New("driver fault")
	d := NewDispenser(m)

	err := d.Start(time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), testFeeding(), 100)
	if err == nil {
		t.Fatal("expected the motor error")
	}
	if d.Busy() {
		t.Error("dispenser must stay idle when the motor fails to start")
	}
}

func TestTickWhileIdle(t *testing.T) {
	d := NewDispenser(motor.NewFakeMotor())
	if _, done := d.Tick(time.Now(), 100); done {
		t.Error("idle dispenser should never report a result")
	}
}
