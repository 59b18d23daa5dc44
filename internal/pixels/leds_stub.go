//go:build !linux

package pixels

import "errors"

// Default pin assignments (BCM numbering).
const (
	DefaultPinEmptyLED = 12
	DefaultPinWifiLED  = 13
)

// LEDStrip is not available on non-Linux platforms.
type LEDStrip struct{}

// NewLEDStrip returns an error on non-Linux platforms.
func NewLEDStrip(pinEmpty, pinWifi int) (*LEDStrip, error) {
	return nil, errors.New("pixels: not supported on this platform (requires Linux)")
}

// Apply is not implemented on non-Linux platforms.
func (l *LEDStrip) Apply(p Pattern, lit bool) error {
	return errors.New("pixels: not supported")
}

// Close is not implemented on non-Linux platforms.
func (l *LEDStrip) Close() error { return nil }
