package indicator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gesturereader/gesturecam/internal/state"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls    []gpioCall
	writeErr error
	closed   bool
}

type gpioCall struct {
	op    string
	pin   int
	level Level
}

func (d *recordingDriver) SetupOutput(pin int) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level Level) error {
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return d.writeErr
}

func (d *recordingDriver) Close() error {
	d.closed = true
	return nil
}

func (d *recordingDriver) lastLevel(pin int) (Level, bool) {
	for i := len(d.calls) - 1; i >= 0; i-- {
		if d.calls[i].op == "write" && d.calls[i].pin == pin {
			return d.calls[i].level, true
		}
	}
	return Low, false
}

func TestNew_PinsInitializedLow(t *testing.T) {
	drv := &recordingDriver{}
	if _, err := New(drv, Pins{Camera: 17, Gestures: 27}); err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, pin := range []int{17, 27} {
		level, ok := drv.lastLevel(pin)
		if !ok || level != Low {
			t.Errorf("pin %d should be initialized LOW, got %v (written=%v)", pin, level, ok)
		}
	}
}

func TestNew_WriteFailure(t *testing.T) {
	drv := &recordingDriver{writeErr: errors.New("bus error")}
	if _, err := New(drv, Pins{Camera: 17}); err == nil {
		t.Error("expected error when initial write fails")
	}
}

func TestApply_FollowsFlags(t *testing.T) {
	cases := []struct {
		name         string
		snap         state.Snapshot
		wantCamera   Level
		wantGestures Level
	}{
		{"off", state.Snapshot{}, Low, Low},
		{"camera", state.Snapshot{CameraEnabled: true}, High, Low},
		{"gestures", state.Snapshot{GesturesEnabled: true}, Low, High},
		{"both", state.Snapshot{CameraEnabled: true, GesturesEnabled: true}, High, High},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drv := &recordingDriver{}
			ind, err := New(drv, Pins{Camera: 17, Gestures: 27})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			ind.Apply(tc.snap)
			if got, _ := drv.lastLevel(17); got != tc.wantCamera {
				t.Errorf("camera pin = %v, want %v", got, tc.wantCamera)
			}
			if got, _ := drv.lastLevel(27); got != tc.wantGestures {
				t.Errorf("gestures pin = %v, want %v", got, tc.wantGestures)
			}
		})
	}
}

func TestApply_UnusedPinSkipped(t *testing.T) {
	drv := &recordingDriver{}
	ind, err := New(drv, Pins{Camera: 17})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	drv.calls = nil
	ind.Apply(state.Snapshot{CameraEnabled: true, GesturesEnabled: true})
	if len(drv.calls) != 1 {
		t.Fatalf("expected 1 write, got %d: %v", len(drv.calls), drv.calls)
	}
	if drv.calls[0].pin != 17 || drv.calls[0].level != High {
		t.Errorf("write = %+v, want pin 17 HIGH", drv.calls[0])
	}
}

func TestApply_WriteErrorNotFatal(t *testing.T) {
	drv := &recordingDriver{}
	ind, err := New(drv, Pins{Camera: 17})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	drv.writeErr = errors.New("bus error")
	ind.Apply(state.Snapshot{CameraEnabled: true}) // must not panic
}

func TestClose_TurnsOffAndCloses(t *testing.T) {
	drv := &recordingDriver{}
	ind, err := New(drv, Pins{Camera: 17, Gestures: 27})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ind.Apply(state.Snapshot{CameraEnabled: true, GesturesEnabled: true})
	if err := ind.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !drv.closed {
		t.Error("driver should be closed")
	}
	for _, pin := range []int{17, 27} {
		if level, _ := drv.lastLevel(pin); level != Low {
			t.Errorf("pin %d = %v after Close, want LOW", pin, level)
		}
	}
}

func TestStateWiring(t *testing.T) {
	drv := &recordingDriver{}
	ind, err := New(drv, Pins{Camera: 17, Gestures: 27})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := state.New()
	s.OnChange(ind.Apply)

	s.SetGestures(true)
	if level, _ := drv.lastLevel(27); level != High {
		t.Errorf("gestures pin = %v after SetGestures(true), want HIGH", level)
	}
	if level, _ := drv.lastLevel(17); level != Low {
		t.Errorf("camera pin = %v, want LOW", level)
	}
}

func TestMockDriver(t *testing.T) {
	d, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true): %v", err)
	}
	if _, ok := d.(*MockDriver); !ok {
		t.Fatalf("NewDriver(true) = %T, want *MockDriver", d)
	}
	if err := d.SetupOutput(5); err != nil {
		t.Error(err)
	}
	if err := d.WritePin(5, High); err != nil {
		t.Error(err)
	}
	if err := d.Close(); err != nil {
		t.Error(err)
	}
}

func TestStateWiring_ConcurrentTogglesEndInStep(t *testing.T) {
	drv := &recordingDriver{}
	ind, err := New(drv, Pins{Camera: 17})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := state.New()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.OnChange(func(snap state.Snapshot) {
		if snap.CameraEnabled {
			once.Do(func() { close(entered) })
			<-release
		}
	})
	s.OnChange(ind.Apply)

	on := make(chan struct{})
	go func() {
		defer close(on)
		s.SetCamera(true)
	}()
	<-entered

	off := make(chan struct{})
	go func() {
		defer close(off)
		s.SetCamera(false)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-on
	<-off

	level, _ := drv.lastLevel(17)
	if want := s.Snapshot().CameraEnabled; (level == High) != want {
		t.Errorf("camera pin = %v while camera flag = %v", level, want)
	}
}
