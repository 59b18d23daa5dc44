// Package scale reads the bowl load cell with hardware abstraction.
// The real implementation bit-bangs an HX711 through the Linux GPIO
// character device. The fake implementation allows testing without hardware.
package scale

// Scale reports the current bowl weight.
type Scale interface {
	// CurrentWeight returns the smoothed bowl weight in grams.
	CurrentWeight() (float64, error)

	// Tare re-zeros the scale at the current load.
	Tare() error

	// Close releases resources.
	Close() error
}

// Default pin assignments (BCM numbering).
const (
	DefaultPinDout = 16 // HX711 DT
	DefaultPinSck  = 4  // HX711 SCK
)

// DefaultCalibration converts raw HX711 counts to grams.
const DefaultCalibration = 989.1836735

// smoother is a simple low-pass filter that damps vibration and sensor
// noise between samples.
type smoother struct {
	value  float64
	primed bool
}

// update folds a raw sample into the smoothed value (70% history, 30% new).
func (s *smoother) update(raw float64) float64 {
	if !s.primed {
		s.value = raw
		s.primed = true
		return s.value
	}
	s.value = 0.7*s.value + 0.3*raw
	return s.value
}

// reset clears the filter state, e.g. after a tare.
func (s *smoother) reset() {
	s.value = 0
	s.primed = false
}
