package storage

import (
	"fmt"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/metrics"
)

// FrameRecord is one row of frames.csv.
type FrameRecord struct {
	Frame       uint64  `csv:"frame"`
	Time        float64 `csv:"time"`
	Shape       string  `csv:"shape"`
	Mode        string  `csv:"mode"`
	Active      bool    `csv:"active"`
	Attracting  bool    `csv:"attracting"`
	Attracted   int     `csv:"attracted"`
	Repelled    int     `csv:"repelled"`
	Intensity   float64 `csv:"intensity"`
	Convergence float64 `csv:"convergence"`
	Spread      float64 `csv:"spread"`
}

// Recorder is an engine observer that samples every Every-th frame.
type Recorder struct {
	Every  int
	frames []FrameRecord
	radii  []float64
}

func NewRecorder(every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{Every: every}
}

func (r *Recorder) OnFrame(f *engine.Frame) {
	if f.Index%uint64(r.Every) != 0 {
		return
	}

	r.radii = metrics.Radii(r.radii, f.Positions)
	var spread float64
	for _, v := range r.radii {
		spread += v
	}
	if len(r.radii) > 0 {
		spread /= float64(len(r.radii))
	}

	r.frames = append(r.frames, FrameRecord{
		Frame:       f.Index,
		Time:        f.Time,
		Shape:       f.Shape.String(),
		Mode:        f.Interaction.Mode.String(),
		Active:      f.Interaction.Active,
		Attracting:  f.Interaction.Attracting,
		Attracted:   f.Stats.Attracted,
		Repelled:    f.Stats.Repelled,
		Intensity:   f.Intensity,
		Convergence: metrics.MeanTargetDistance(f.Positions, f.Targets),
		Spread:      spread,
	})
}

func (r *Recorder) Frames() []FrameRecord { return r.frames }

func (r *Recorder) Reset() { r.frames = r.frames[:0] }

// Columns lists the numeric FrameRecord fields Column accepts.
var Columns = []string{"convergence", "spread", "attracted", "repelled", "intensity"}

// Column extracts one numeric series from frames, with the matching times.
func Column(frames []FrameRecord, name string) (values, times []float64, err error) {
	var get func(FrameRecord) float64
	switch name {
	case "convergence":
		get = func(r FrameRecord) float64 { return r.Convergence }
	case "spread":
		get = func(r FrameRecord) float64 { return r.Spread }
	case "attracted":
		get = func(r FrameRecord) float64 { return float64(r.Attracted) }
	case "repelled":
		get = func(r FrameRecord) float64 { return float64(r.Repelled) }
	case "intensity":
		get = func(r FrameRecord) float64 { return r.Intensity }
	default:
		return nil, nil, fmt.Errorf("unknown column %q (available: %v)", name, Columns)
	}

	values = make([]float64, len(frames))
	times = make([]float64, len(frames))
	for i, r := range frames {
		values[i] = get(r)
		times[i] = r.Time
	}
	return values, times, nil
}

var _ engine.Observer = (*Recorder)(nil)
