//go:build !linux

package scale

import "errors"

// HX711 is not available on non-Linux platforms.
type HX711 struct{}

// NewHX711 returns an error on non-Linux platforms.
func NewHX711(pinDout, pinSck int, calibration float64) (*HX711, error) {
	return nil, errors.New("scale: not supported on this platform (requires Linux)")
}

// CurrentWeight is not implemented on non-Linux platforms.
func (h *HX711) CurrentWeight() (float64, error) {
	return 0, errors.New("scale: not supported")
}

// Tare is not implemented on non-Linux platforms.
func (h *HX711) Tare() error {
	return errors.New("scale: not supported")
}

// Close is not implemented on non-Linux platforms.
func (h *HX711) Close() error { return nil }
