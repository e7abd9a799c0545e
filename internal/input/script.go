package input

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/interact"
)

var ErrEmptyScript = errors.New("input: hand script has no rows")

// HandRow is one line of a recorded hand-tracking session.
type HandRow struct {
	// Hold repeats the row for this many consecutive reads; 0 counts as 1.
	Hold     int     `csv:"hold"`
	Fingers  int     `csv:"fingers"`
	Pinching bool    `csv:"pinch"`
	Distance float64 `csv:"distance"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Detected bool    `csv:"detected"`
}

func (r HandRow) Sample() interact.HandSample {
	return interact.HandSample{
		FingerCount:        r.Fingers,
		IsPinching:         r.Pinching,
		PinchDistance:      r.Distance,
		NormalizedPosition: [2]float64{r.X, r.Y},
		Detected:           r.Detected,
	}
}

// Script replays HandRows, one fresh sample per read. When Loop is false
// the last row is repeated as a stale sample after the script ends.
type Script struct {
	rows []HandRow
	Loop bool

	row  int
	held int
	done bool
}

func NewScript(rows []HandRow, loop bool) (*Script, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyScript
	}
	return &Script{rows: rows, Loop: loop}, nil
}

func ReadScript(r io.Reader, loop bool) (*Script, error) {
	var rows []HandRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse hand script: %w", err)
	}
	return NewScript(rows, loop)
}

func LoadScript(path string, loop bool) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ReadScript(f, loop)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func WriteScript(w io.Writer, rows []HandRow) error {
	return gocsv.Marshal(rows, w)
}

// Len returns the number of reads one pass of the script takes.
func (s *Script) Len() int {
	n := 0
	for _, r := range s.rows {
		n += max(r.Hold, 1)
	}
	return n
}

func (s *Script) Hand() (interact.HandSample, bool, error) {
	if s == nil {
		return interact.HandSample{}, false, engine.ErrSourceUnavailable
	}
	if s.done {
		return s.rows[len(s.rows)-1].Sample(), false, nil
	}

	cur := s.rows[s.row]
	sample := cur.Sample()

	s.held++
	if s.held >= max(cur.Hold, 1) {
		s.held = 0
		s.row++
		if s.row == len(s.rows) {
			if s.Loop {
				s.row = 0
			} else {
				s.row = len(s.rows) - 1
				s.done = true
			}
		}
	}
	return sample, true, nil
}

func (s *Script) Rewind() {
	s.row, s.held, s.done = 0, 0, false
}
