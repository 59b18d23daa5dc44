// Package distance reads the food-container level sensor. The container is
// judged empty when the measured distance to the food surface exceeds a
// threshold.
//
// The production sensor is an I2C time-of-flight ranger; there is currently
// no real implementation here, only the interface the core polls and a fake
// for tests and simulation.
package distance

// DefaultEmptyThresholdMM is the distance beyond which the container is
// considered empty.
const DefaultEmptyThresholdMM = 74

// Ranger reports the distance to the food surface.
type Ranger interface {
	// CurrentDistance returns the last measured distance in millimeters
	// and whether a valid measurement is available.
	CurrentDistance() (int, bool)

	// Close releases resources.
	Close() error
}

// Empty reports whether a measured distance means the container is empty.
func Empty(distanceMM int, thresholdMM int) bool {
	return distanceMM > thresholdMM
}

// FakeRanger is a test double that returns scripted distances.
type FakeRanger struct {
	// Distances contains scripted readings in millimeters. Each call to
	// CurrentDistance consumes the next one; the last repeats.
	Distances []int

	// index tracks current position in Distances
	index int

	// NoMeasurement forces CurrentDistance to report no valid reading.
	NoMeasurement bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeRanger creates a FakeRanger with the given readings.
func NewFakeRanger(distances ...int) *FakeRanger {
	return &FakeRanger{Distances: distances}
}

// CurrentDistance returns the next scripted reading.
func (f *FakeRanger) CurrentDistance() (int, bool) {
	if f.NoMeasurement || len(f.Distances) == 0 {
		return 0, false
	}

	d := f.Distances[f.index]
	if f.index < len(f.Distances)-1 {
		f.index++
	}
	return d, true
}

// Close marks the ranger as closed.
func (f *FakeRanger) Close() error {
	f.Closed = true
	return nil
}
