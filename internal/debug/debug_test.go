package debug

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func capture(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() {
		Init(LevelOff)
	})
	return &buf
}

func TestInit_OffPrintsNothing(t *testing.T) {
	buf := capture(t, LevelOff)
	Info("hidden")
	Flag("Camera", true)
	Error(errors.New("boom"))
	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
}

func TestFlag_Format(t *testing.T) {
	buf := capture(t, LevelInfo)
	Flag("Camera", true)
	if !strings.Contains(buf.String(), "Camera enabled: true") {
		t.Errorf("output = %q, want it to contain %q", buf.String(), "Camera enabled: true")
	}
	if !strings.HasPrefix(buf.String(), "[gesturecam] ") {
		t.Errorf("output = %q, want prefix [gesturecam]", buf.String())
	}
}

func TestFrame_Format(t *testing.T) {
	buf := capture(t, LevelInfo)
	Frame(5)
	if !strings.Contains(buf.String(), "Size: 5 bytes") {
		t.Errorf("output = %q, want it to contain %q", buf.String(), "Size: 5 bytes")
	}
}

func TestLevels_Filtering(t *testing.T) {
	cases := []struct {
		name  string
		level int
		want  []string
		skip  []string
	}{
		{"info", LevelInfo, []string{"[INFO] i"}, []string{"[LIVE]", "[VERBOSE]", "[TRACE]", "[GPIO]"}},
		{"live", LevelLive, []string{"[INFO] i", "[LIVE] l"}, []string{"[VERBOSE]", "[TRACE]"}},
		{"verbose", LevelVerbose, []string{"[LIVE] l", "[VERBOSE] v"}, []string{"[TRACE]", "[GPIO]"}},
		{"trace", LevelTrace, []string{"[VERBOSE] v", "[TRACE] t", "[GPIO] WritePin pin=17 value=true"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := capture(t, tc.level)
			Info("i")
			Live("l")
			Verbose("v")
			Trace("t")
			GPIO("WritePin", 17, true)
			got := buf.String()
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in %q", w, got)
				}
			}
			for _, s := range tc.skip {
				if strings.Contains(got, s) {
					t.Errorf("unexpected %q in %q", s, got)
				}
			}
		})
	}
}

func TestSetOutput_AfterInit(t *testing.T) {
	capture(t, LevelInfo)
	var other bytes.Buffer
	SetOutput(&other)
	Info("moved")
	if !strings.Contains(other.String(), "moved") {
		t.Errorf("expected output on new writer, got %q", other.String())
	}
}

func TestIsEnabled(t *testing.T) {
	capture(t, LevelLive)
	if !IsEnabled(LevelInfo) {
		t.Error("IsEnabled(LevelInfo) = false at level 2")
	}
	if IsEnabled(LevelVerbose) {
		t.Error("IsEnabled(LevelVerbose) = true at level 2")
	}
	if Level() != LevelLive {
		t.Errorf("Level() = %d, want %d", Level(), LevelLive)
	}
}

func TestFmt(t *testing.T) {
	capture(t, LevelOff)
	if got := Fmt("%d", 1); got != "" {
		t.Errorf("Fmt at level 0 = %q, want empty", got)
	}
	capture(t, LevelInfo)
	if got := Fmt("%d", 1); got != "1" {
		t.Errorf("Fmt at level 1 = %q, want %q", got, "1")
	}
}
