// Package indicator mirrors the feature flags onto status LEDs.
package indicator

import (
	"fmt"
	"sync"

	"github.com/gesturereader/gesturecam/internal/debug"
	"github.com/gesturereader/gesturecam/internal/state"
)

// Pins selects the GPIO pin for each flag. 0 means no LED for that flag.
type Pins struct {
	Camera   int
	Gestures int
}

// Indicator lights one LED per enabled flag.
type Indicator struct {
	mu   sync.Mutex
	gpio Driver
	pins Pins
}

// New configures the pins as outputs and turns them off, matching the
// initial state of the flags.
func New(g Driver, pins Pins) (*Indicator, error) {
	for _, pin := range pins.used() {
		if err := g.SetupOutput(pin); err != nil {
			return nil, fmt.Errorf("setup pin %d: %w", pin, err)
		}
		if err := g.WritePin(pin, Low); err != nil {
			return nil, fmt.Errorf("reset pin %d: %w", pin, err)
		}
	}
	return &Indicator{gpio: g, pins: pins}, nil
}

// Apply drives each LED to match snap. Failures are logged, not returned,
// so a broken LED never fails a toggle request.
func (i *Indicator) Apply(snap state.Snapshot) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.write(i.pins.Camera, snap.CameraEnabled)
	i.write(i.pins.Gestures, snap.GesturesEnabled)
}

func (i *Indicator) write(pin int, on bool) {
	if pin == 0 {
		return
	}
	level := Low
	if on {
		level = High
	}
	if err := i.gpio.WritePin(pin, level); err != nil {
		debug.Error(fmt.Errorf("indicator pin %d: %w", pin, err))
	}
}

// Close switches the LEDs off and releases the driver.
func (i *Indicator) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, pin := range i.pins.used() {
		_ = i.gpio.WritePin(pin, Low)
	}
	return i.gpio.Close()
}

func (p Pins) used() []int {
	var pins []int
	if p.Camera != 0 {
		pins = append(pins, p.Camera)
	}
	if p.Gestures != 0 {
		pins = append(pins, p.Gestures)
	}
	return pins
}
