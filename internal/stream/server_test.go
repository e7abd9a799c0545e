package stream

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/morphcloud/internal/compute"
	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/input"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
)

type harness struct {
	eng     *engine.Engine
	pointer *input.Pointer
	hand    *input.Hand
	srv     *Server
	http    *httptest.Server
}

func newHarness(t *testing.T, maxConns int) *harness {
	t.Helper()
	return newHarnessN(t, maxConns, 64)
}

func newHarnessN(t *testing.T, maxConns, particles int) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Particles.Count = particles
	cfg.Particles.Seed = 3

	eng, err := engine.New(cfg, compute.SerialBackend{})
	require.NoError(t, err)

	h := &harness{eng: eng, pointer: input.NewPointer(), hand: input.NewHand()}
	eng.SetPointerSource(h.pointer)
	eng.SetHandSource(h.hand)

	h.srv = NewServer(Options{Engine: eng, Pointer: h.pointer, Hand: h.hand, MaxConns: maxConns})
	eng.AddRenderer(h.srv)
	h.http = httptest.NewServer(h.srv.Handler())
	t.Cleanup(h.http.Close)
	return h
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHelloThenFrames(t *testing.T) {
	h := newHarness(t, 0)
	conn := h.dial(t)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello Hello
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.Equal(t, 64, hello.Particles)
	assert.Equal(t, "sphere", hello.Shape)
	assert.Len(t, hello.Colors, 64*3)
	assert.Len(t, hello.Sizes, 64)

	require.Eventually(t, func() bool { return h.srv.Clients() == 1 }, time.Second, 5*time.Millisecond)

	f := h.eng.Tick(0.016)

	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)

	msg, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, f.Index, msg.Index)
	assert.Equal(t, shape.Sphere, msg.Shape)
	require.Len(t, msg.Positions, 64*3)
	assert.InDelta(t, f.Positions[0], msg.Positions[0], 1e-6)
}

func TestCommandsReachEngine(t *testing.T) {
	h := newHarness(t, 0)
	conn := h.dial(t)
	var hello Hello
	require.NoError(t, conn.ReadJSON(&hello))

	require.NoError(t, conn.WriteJSON(Command{Type: "shape", Shape: "heart"}))
	require.Eventually(t, func() bool { return h.eng.Shape() == shape.Heart }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Type: "next"}))
	require.Eventually(t, func() bool { return h.eng.Shape() == shape.Flower }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Type: "pointer", X: 0.5, Y: -0.25, Pressed: true}))
	require.Eventually(t, func() bool {
		s, ok := h.pointer.Pointer()
		return ok && s.Pressed && s.NDC == [2]float64{0.5, -0.25}
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Type: "mode", Mode: "hand"}))
	require.Eventually(t, func() bool { return h.eng.Mode() == interact.Hand }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Type: "hand", Fingers: 2, Detected: true, X: 0.5, Y: 0.5}))
	require.Eventually(t, func() bool {
		s, fresh, err := h.hand.Hand()
		return err == nil && fresh && s.FingerCount == 2
	}, time.Second, 5*time.Millisecond)

	// unknown commands are logged and ignored
	require.NoError(t, conn.WriteJSON(Command{Type: "explode"}))
	require.NoError(t, conn.WriteJSON(Command{Type: "shape", Shape: "cube"}))
	require.NoError(t, conn.WriteJSON(Command{Type: "next"}))
	require.Eventually(t, func() bool { return h.eng.Shape() == shape.Saturn }, time.Second, 5*time.Millisecond)
}

func TestMaxConns(t *testing.T) {
	h := newHarness(t, 1)
	h.dial(t)
	require.Eventually(t, func() bool { return h.srv.Clients() == 1 }, time.Second, 5*time.Millisecond)

	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDisconnectRemovesClient(t *testing.T) {
	h := newHarness(t, 0)
	conn := h.dial(t)
	require.Eventually(t, func() bool { return h.srv.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.srv.Clients() == 0 }, time.Second, 5*time.Millisecond)

	// ticking with no clients must not block
	h.eng.Tick(0.016)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, 0)
	resp, err := http.Get(h.http.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 0, body["clients"])
}

func TestEverySkipsFrames(t *testing.T) {
	h := newHarness(t, 0)
	h.srv.opts.Every = 3
	conn := h.dial(t)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello Hello
	require.NoError(t, conn.ReadJSON(&hello))
	require.Eventually(t, func() bool { return h.srv.Clients() == 1 }, time.Second, 5*time.Millisecond)

	for i := 1; i <= 6; i++ {
		h.eng.Tick(float64(i) * 0.016)
	}

	var got []uint64
	for range 2 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := DecodeFrame(data)
		require.NoError(t, err)
		got = append(got, msg.Index)
	}
	for _, idx := range got {
		assert.Zero(t, idx%3)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	f := &engine.Frame{
		Index:     42,
		Time:      1.5,
		Positions: []float32{1, 2, 3, -4, -5, -6},
		Transform: mgl64.HomogRotate3DY(0.5),
		Shape:     shape.Fireworks,
		Intensity: 0.35,
		Interaction: interact.State{
			Mode:   interact.Hand,
			Point:  mgl64.Vec3{1, 2, 30},
			Active: true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, f))

	msg, err := DecodeFrame(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), msg.Index)
	assert.Equal(t, shape.Fireworks, msg.Shape)
	assert.Equal(t, interact.Hand, msg.Mode)
	assert.True(t, msg.Active)
	assert.False(t, msg.Attracting)
	assert.InDelta(t, 0.35, msg.Intensity, 1e-6)
	assert.Equal(t, [3]float32{1, 2, 30}, msg.Point)
	assert.InDelta(t, f.Transform[0], msg.Transform[0], 1e-6)
	assert.Equal(t, f.Positions, msg.Positions)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeFrame([]byte("nope"))
	assert.ErrorIs(t, err, ErrBadFrame)

	var buf bytes.Buffer
	require.NoError(t, EncodeFrame(&buf, &engine.Frame{Positions: []float32{1, 2, 3}}))
	data := buf.Bytes()

	_, err = DecodeFrame(data[:len(data)-4])
	assert.ErrorIs(t, err, ErrBadFrame)

	bad := bytes.Clone(data)
	bad[0] = 'X'
	_, err = DecodeFrame(bad)
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestStalledClientDropsFrames(t *testing.T) {
	// the client stops reading after the hello; large frames fill its socket buffers
	h := newHarnessN(t, 0, 20000)
	conn := h.dial(t)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello Hello
	require.NoError(t, conn.ReadJSON(&hello))
	require.Eventually(t, func() bool { return h.srv.Clients() == 1 }, time.Second, 5*time.Millisecond)

	var polled atomic.Uint64
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				polled.Store(h.srv.Dropped())
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 200; i++ {
			h.eng.Tick(float64(i) / 60)
		}
	}()

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("tick blocked on a stalled client")
	}
	close(stop)

	assert.Greater(t, h.srv.Dropped(), uint64(0))
	assert.LessOrEqual(t, h.srv.Dropped(), uint64(200))
	assert.LessOrEqual(t, polled.Load(), h.srv.Dropped())
}
