// Package audio turns the engine's interaction intensity into a soft pad
// and rings a chime on every shape change.
package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/harmonica"
	"github.com/gordonklaus/portaudio"
	"github.com/mjibson/go-dsp/window"

	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/engine"
)

const (
	SampleRate = 44100
	BufferSize = 1024

	chimeSeconds = 0.6
	delaySeconds = 0.35
)

// pad voicing relative to the base frequency: root, fifth, octave, ninth
var ratios = []float64{1, 1.5, 2, 2.25}

// Synth is an engine.AudioSink. Render is safe to call from the audio
// callback while the engine calls SetIntensity and ShapeChanged.
type Synth struct {
	Stream *portaudio.Stream

	volume    float64
	baseFreq  float64
	chimeFreq float64

	mu     sync.Mutex
	target float64
	chimes int
	shown  float64

	// callback state
	spring    harmonica.Spring
	level     float64
	velocity  float64
	time      float64
	filter    [2]float64
	delay     [2][]float64
	delayHead int
	envelope  []float64
	chimePos  int

	Active bool
}

func NewSynth(cfg config.AudioConfig) *Synth {
	callbacksPerSecond := SampleRate / BufferSize
	delayLen := int(SampleRate * delaySeconds)
	return &Synth{
		volume:    cfg.Volume,
		baseFreq:  cfg.BaseFreq,
		chimeFreq: cfg.ChimeFreq,
		spring:    harmonica.NewSpring(harmonica.FPS(callbacksPerSecond), 6.0, 1.0),
		delay:     [2][]float64{make([]float64, delayLen), make([]float64, delayLen)},
		envelope:  window.Hann(int(SampleRate * chimeSeconds)),
		chimePos:  -1,
	}
}

// Start opens the default output device.
func (s *Synth) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: initialize: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BufferSize, s.Render)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("audio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("audio: start stream: %w", err)
	}
	s.Stream = stream
	s.Active = true
	return nil
}

func (s *Synth) Stop() {
	if s.Stream != nil {
		s.Stream.Stop()
		s.Stream.Close()
		s.Stream = nil
	}
	if s.Active {
		portaudio.Terminate()
	}
	s.Active = false
}

func (s *Synth) SetIntensity(v float64) {
	s.mu.Lock()
	s.target = math.Max(0, math.Min(1, v))
	s.mu.Unlock()
}

func (s *Synth) ShapeChanged() {
	s.mu.Lock()
	s.chimes++
	s.mu.Unlock()
}

// Level is the smoothed intensity used by the last buffer.
func (s *Synth) Level() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

// Triangle Wave: Smooth, flute-like, no harsh buzz
func triangle(phase float64) float64 {
	p := phase - math.Floor(phase)
	return 4.0*math.Abs(p-0.5) - 1.0
}

// Low Pass Filter (One Pole)
func lpf(sample, cutoff, dt, state float64) float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	alpha := dt / (rc + dt)
	return state + alpha*(sample-state)
}

// Render fills one stereo buffer.
func (s *Synth) Render(out [][]float32) {
	s.mu.Lock()
	target := s.target
	if s.chimes > 0 {
		s.chimes = 0
		s.chimePos = 0
	}
	s.mu.Unlock()

	s.level, s.velocity = s.spring.Update(s.level, s.velocity, target)
	level := math.Max(0, s.level)
	s.mu.Lock()
	s.shown = s.level
	s.mu.Unlock()

	// intensity opens the filter
	cutoff := 250.0 + 1500.0*level
	dt := 1.0 / float64(SampleRate)
	g := 1.0 / float64(len(ratios))

	for i := range out[0] {
		var l, r float64
		for j, ratio := range ratios {
			f := s.baseFreq * ratio
			lfo := math.Sin(s.time*0.3 + float64(j))
			l += triangle(s.time*f*0.999) * g * (0.7 + 0.3*lfo)
			r += triangle(s.time*f*1.001) * g * (0.7 + 0.3*lfo)
		}
		l *= level
		r *= level

		s.filter[0] = lpf(l, cutoff, dt, s.filter[0])
		s.filter[1] = lpf(r, cutoff, dt, s.filter[1])
		l, r = s.filter[0], s.filter[1]

		if s.chimePos >= 0 {
			c := math.Sin(2*math.Pi*s.chimeFreq*s.time) * s.envelope[s.chimePos] * 0.5
			l += c
			r += c
			s.chimePos++
			if s.chimePos >= len(s.envelope) {
				s.chimePos = -1
			}
		}

		dl, dr := s.delay[0][s.delayHead], s.delay[1][s.delayHead]
		mixL := l + dl*0.3 + dr*0.1
		mixR := r + dr*0.3 + dl*0.1
		s.delay[0][s.delayHead] = mixL * 0.5
		s.delay[1][s.delayHead] = mixR * 0.5
		s.delayHead = (s.delayHead + 1) % len(s.delay[0])

		out[0][i] = float32(mixL * s.volume)
		if len(out) > 1 {
			out[1][i] = float32(mixR * s.volume)
		}
		s.time += dt
	}
}

var _ engine.AudioSink = (*Synth)(nil)
