//go:build linux

package scale

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// HX711 reads an HX711 load-cell amplifier by bit-banging its two-wire
// protocol: wait for DOUT low, then clock out 24 data bits plus one gain
// pulse on SCK.
type HX711 struct {
	chip     *gpiocdev.Chip
	doutLine *gpiocdev.Line
	sckLine  *gpiocdev.Line

	calibration float64
	offset      int64
	filter      smoother
}

// NewHX711 creates a scale reader on the given DOUT and SCK pins. The
// calibration factor converts raw counts to grams.
func NewHX711(pinDout, pinSck int, calibration float64) (*HX711, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	doutLine, err := chip.RequestLine(pinDout, gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request DOUT pin %d: %w", pinDout, err)
	}

	sckLine, err := chip.RequestLine(pinSck, gpiocdev.AsOutput(0))
	if err != nil {
		doutLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request SCK pin %d: %w", pinSck, err)
	}

	h := &HX711{
		chip:        chip,
		doutLine:    doutLine,
		sckLine:     sckLine,
		calibration: calibration,
	}

	if err := h.Tare(); err != nil {
		h.Close()
		return nil, fmt.Errorf("initial tare: %w", err)
	}
	return h, nil
}

// CurrentWeight returns the smoothed weight in grams.
func (h *HX711) CurrentWeight() (float64, error) {
	raw, err := h.readAverage(5)
	if err != nil {
		return 0, err
	}
	grams := float64(raw-h.offset) / h.calibration
	return h.filter.update(grams), nil
}

// Tare re-zeros the scale at the current load and resets the filter.
func (h *HX711) Tare() error {
	raw, err := h.readAverage(20)
	if err != nil {
		return err
	}
	h.offset = raw
	h.filter.reset()
	return nil
}

// Close releases GPIO resources.
func (h *HX711) Close() error {
	var errs []error
	if err := h.doutLine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close DOUT pin: %w", err))
	}
	if err := h.sckLine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close SCK pin: %w", err))
	}
	if err := h.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (h *HX711) readAverage(samples int) (int64, error) {
	var sum int64
	for i := 0; i < samples; i++ {
		v, err := h.readRaw()
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / int64(samples), nil
}

// readRaw clocks one 24-bit sample out of the HX711.
func (h *HX711) readRaw() (int64, error) {
	// Wait for the chip to signal a ready sample (DOUT low).
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		v, err := h.doutLine.Value()
		if err != nil {
			return 0, fmt.Errorf("read DOUT: %w", err)
		}
		if v == 0 {
			break
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("hx711: sample not ready")
		}
		time.Sleep(100 * time.Microsecond)
	}

	var value int64
	for i := 0; i < 24; i++ {
		if err := h.sckLine.SetValue(1); err != nil {
			return 0, fmt.Errorf("set SCK: %w", err)
		}
		bit, err := h.doutLine.Value()
		if err != nil {
			return 0, fmt.Errorf("read DOUT bit: %w", err)
		}
		if err := h.sckLine.SetValue(0); err != nil {
			return 0, fmt.Errorf("clear SCK: %w", err)
		}
		value = value<<1 | int64(bit)
	}

	// One extra pulse selects channel A, gain 128, for the next sample.
	if err := h.sckLine.SetValue(1); err != nil {
		return 0, fmt.Errorf("set SCK: %w", err)
	}
	if err := h.sckLine.SetValue(0); err != nil {
		return 0, fmt.Errorf("clear SCK: %w", err)
	}

	// Sign-extend the 24-bit two's-complement sample.
	if value&0x800000 != 0 {
		value -= 1 << 24
	}
	return value, nil
}
