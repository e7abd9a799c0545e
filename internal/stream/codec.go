package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
)

var (
	frameMagic = [4]byte{'M', 'C', 'F', '1'}

	ErrBadFrame = errors.New("stream: malformed frame message")
)

const (
	flagActive uint8 = 1 << iota
	flagAttracting
)

// frameHeader precedes the float32 positions in every binary message. All
// fields are little endian.
type frameHeader struct {
	Magic     [4]byte
	Index     uint64
	Time      float64
	Shape     uint8
	Mode      uint8
	Flags     uint8
	_         uint8
	Intensity float32
	Point     [3]float32
	Transform [16]float32
	Count     uint32
}

// FrameMessage is a decoded binary frame.
type FrameMessage struct {
	Index      uint64
	Time       float64
	Shape      shape.Kind
	Mode       interact.Mode
	Active     bool
	Attracting bool
	Intensity  float32
	Point      [3]float32
	Transform  [16]float32
	Positions  []float32
}

// EncodeFrame serialises f into buf, replacing its contents.
func EncodeFrame(buf *bytes.Buffer, f *engine.Frame) error {
	buf.Reset()

	h := frameHeader{
		Magic:     frameMagic,
		Index:     f.Index,
		Time:      f.Time,
		Shape:     uint8(f.Shape),
		Mode:      uint8(f.Interaction.Mode),
		Intensity: float32(f.Intensity),
		Count:     uint32(len(f.Positions) / 3),
	}
	if f.Interaction.Active {
		h.Flags |= flagActive
	}
	if f.Interaction.Attracting {
		h.Flags |= flagAttracting
	}
	for i := range h.Point {
		h.Point[i] = float32(f.Interaction.Point[i])
	}
	for i := range h.Transform {
		h.Transform[i] = float32(f.Transform[i])
	}

	if err := binary.Write(buf, binary.LittleEndian, &h); err != nil {
		return err
	}
	return binary.Write(buf, binary.LittleEndian, f.Positions[:h.Count*3])
}

func DecodeFrame(data []byte) (*FrameMessage, error) {
	r := bytes.NewReader(data)

	var h frameHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if h.Magic != frameMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadFrame, h.Magic[:])
	}
	if int64(h.Count)*12 != int64(r.Len()) {
		return nil, fmt.Errorf("%w: %d particles but %d payload bytes", ErrBadFrame, h.Count, r.Len())
	}

	m := &FrameMessage{
		Index:      h.Index,
		Time:       h.Time,
		Shape:      shape.Kind(h.Shape),
		Mode:       interact.Mode(h.Mode),
		Active:     h.Flags&flagActive != 0,
		Attracting: h.Flags&flagAttracting != 0,
		Intensity:  h.Intensity,
		Point:      h.Point,
		Transform:  h.Transform,
		Positions:  make([]float32, h.Count*3),
	}
	if err := binary.Read(r, binary.LittleEndian, m.Positions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return m, nil
}
