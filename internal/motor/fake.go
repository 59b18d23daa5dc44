package motor

// FakeMotor records motor commands for test assertions.
type FakeMotor struct {
	// Running reports whether the fake motor is currently dispensing.
	Running bool

	// DispenseCalls counts calls to Dispense.
	DispenseCalls int

	// StopCalls counts calls to Stop.
	StopCalls int

	// DispenseError, if set, will be returned by Dispense.
	DispenseError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeMotor creates a FakeMotor for testing.
func NewFakeMotor() *FakeMotor {
	return &FakeMotor{}
}

// Dispense marks the motor as running.
func (f *FakeMotor) Dispense() error {
	if f.DispenseError != nil {
		return f.DispenseError
	}
	f.DispenseCalls++
	f.Running = true
	return nil
}

// Stop marks the motor as stopped.
func (f *FakeMotor) Stop() {
	f.StopCalls++
	f.Running = false
}

// Idle reports whether the fake motor is stopped.
func (f *FakeMotor) Idle() bool {
	return !f.Running
}

// Close marks the motor as closed.
func (f *FakeMotor) Close() error {
	f.Running = false
	f.Closed = true
	return nil
}
