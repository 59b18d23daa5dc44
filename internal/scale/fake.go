package scale

import "errors"

// FakeScale is a test double that returns scripted weights.
type FakeScale struct {
	// Weights contains scripted readings in grams. Each call to
	// CurrentWeight consumes the next one; the last repeats.
	Weights []float64

	// index tracks current position in Weights
	index int

	// ReadError, if set, will be returned by CurrentWeight.
	ReadError error

	// TareCalls counts calls to Tare.
	TareCalls int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeScale creates a FakeScale with the given readings.
func NewFakeScale(weights ...float64) *FakeScale {
	return &FakeScale{Weights: weights}
}

// CurrentWeight returns the next scripted reading.
// If readings are exhausted, returns the last one repeatedly.
func (f *FakeScale) CurrentWeight() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Weights) == 0 {
		return 0, errors.New("no weights configured")
	}

	w := f.Weights[f.index]
	if f.index < len(f.Weights)-1 {
		f.index++
	}
	return w, nil
}

// Tare counts the call.
func (f *FakeScale) Tare() error {
	f.TareCalls++
	return nil
}

// Close marks the scale as closed.
func (f *FakeScale) Close() error {
	f.Closed = true
	return nil
}
