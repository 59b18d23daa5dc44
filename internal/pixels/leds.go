//go:build linux

package pixels

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Default pin assignments (BCM numbering).
const (
	DefaultPinEmptyLED = 12 // red: container empty
	DefaultPinWifiLED  = 13 // blue: network down
)

// LEDStrip drives two discrete indicator LEDs through the Linux GPIO
// character device: a red container-empty LED and a blue network LED.
type LEDStrip struct {
	chip      *gpiocdev.Chip
	emptyLine *gpiocdev.Line
	wifiLine  *gpiocdev.Line
}

// NewLEDStrip creates the LED driver on the given pins.
func NewLEDStrip(pinEmpty, pinWifi int) (*LEDStrip, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	emptyLine, err := chip.RequestLine(pinEmpty, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request empty LED pin %d: %w", pinEmpty, err)
	}

	wifiLine, err := chip.RequestLine(pinWifi, gpiocdev.AsOutput(0))
	if err != nil {
		emptyLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request wifi LED pin %d: %w", pinWifi, err)
	}

	return &LEDStrip{chip: chip, emptyLine: emptyLine, wifiLine: wifiLine}, nil
}

// Apply displays the pattern on the two LEDs.
func (l *LEDStrip) Apply(p Pattern, lit bool) error {
	empty, wifi := 0, 0
	if lit {
		switch p {
		case AllRed:
			empty = 1
		case WifiOnly:
			wifi = 1
		case RedAndWifi:
			empty, wifi = 1, 1
		}
	}

	if err := l.emptyLine.SetValue(empty); err != nil {
		return fmt.Errorf("set empty LED: %w", err)
	}
	if err := l.wifiLine.SetValue(wifi); err != nil {
		return fmt.Errorf("set wifi LED: %w", err)
	}
	return nil
}

// Close blanks the LEDs and releases GPIO resources.
func (l *LEDStrip) Close() error {
	var errs []error
	if err := l.Apply(Off, false); err != nil {
		errs = append(errs, err)
	}
	if err := l.emptyLine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close empty LED pin: %w", err))
	}
	if err := l.wifiLine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close wifi LED pin: %w", err))
	}
	if err := l.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
