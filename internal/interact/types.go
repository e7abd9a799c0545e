package interact

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

type Mode int

const (
	Pointer Mode = iota
	Hand
)

func (m Mode) String() string {
	switch m {
	case Pointer:
		return "pointer"
	case Hand:
		return "hand"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pointer", "mouse":
		return Pointer, nil
	case "hand":
		return Hand, nil
	default:
		return 0, fmt.Errorf("unknown input mode: %s", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// State is recomputed every frame.
type State struct {
	Mode       Mode
	Point      mgl64.Vec3
	Active     bool
	Attracting bool
}

// PointerSample is one frame of pointer input.
type PointerSample struct {
	NDC     [2]float64 // [-1,1]², y up
	Pressed bool
}

// HandSample is the output of the external landmark detector.
type HandSample struct {
	FingerCount        int
	IsPinching         bool
	PinchDistance      float64
	NormalizedPosition [2]float64 // [0,1]², y down
	Detected           bool
}
