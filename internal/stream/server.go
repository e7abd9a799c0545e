// Package stream broadcasts frames to browser clients over WebSocket and
// accepts pointer, hand and shape commands back.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/input"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
)

const (
	sendQueue    = 4
	writeTimeout = 2 * time.Second
)

var ErrTooManyClients = errors.New("stream: connection limit reached")

// Hello is the first (JSON) message on every connection. Colours and sizes
// never change, so they are sent once.
type Hello struct {
	Type      string    `json:"type"`
	Particles int       `json:"particles"`
	Shape     string    `json:"shape"`
	Colors    []float32 `json:"colors"`
	Sizes     []float32 `json:"sizes"`
}

// Command is a client message. Type selects which fields apply.
type Command struct {
	Type string `json:"type"` // pointer, leave, hand, shape, next, mode

	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Pressed bool    `json:"pressed"`

	Fingers  int     `json:"fingers"`
	Pinching bool    `json:"pinching"`
	Detected bool    `json:"detected"`
	Distance float64 `json:"distance"`

	Shape string `json:"shape"`
	Mode  string `json:"mode"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Options struct {
	Engine  *engine.Engine
	Pointer *input.Pointer
	Hand    *input.Hand
	// Every sends one frame in Every; 0 or 1 sends all.
	Every    int
	MaxConns int
	Logger   *slog.Logger
}

// Server is an engine.RenderSink. Slow clients drop frames rather than
// stall the tick.
type Server struct {
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	buf     bytes.Buffer
	dropped atomic.Uint64
}

func NewServer(opts Options) *Server {
	if opts.Every < 1 {
		opts.Every = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		opts: opts,
		log:  log.With("component", "stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"clients": s.Clients()})
	})
	return mux
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.log.Info("listening", "addr", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.closeAll()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxConns > 0 && s.Clients() >= s.opts.MaxConns {
		http.Error(w, ErrTooManyClients.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueue)}
	if err := conn.WriteJSON(s.hello()); err != nil {
		conn.Close()
		return
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("client connected", "remote", r.RemoteAddr, "clients", s.Clients())

	go s.writeLoop(c)
	s.readLoop(c)

	s.remove(c)
	s.log.Info("client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) hello() Hello {
	buf := s.opts.Engine.Buffer()
	return Hello{
		Type:      "hello",
		Particles: buf.N,
		Shape:     s.opts.Engine.Shape().String(),
		Colors:    buf.Colors,
		Sizes:     buf.Sizes,
	}
}

func (s *Server) writeLoop(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			s.log.Debug("write failed", "err", err)
			c.conn.Close()
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

func (s *Server) readLoop(c *client) {
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			return
		}
		if err := s.apply(cmd); err != nil {
			s.log.Warn("bad command", "type", cmd.Type, "err", err)
		}
	}
}

func (s *Server) apply(cmd Command) error {
	switch cmd.Type {
	case "pointer":
		if s.opts.Pointer != nil {
			s.opts.Pointer.Set(interact.PointerSample{NDC: [2]float64{cmd.X, cmd.Y}, Pressed: cmd.Pressed})
		}
	case "leave":
		if s.opts.Pointer != nil {
			s.opts.Pointer.Leave()
		}
	case "hand":
		if s.opts.Hand != nil {
			s.opts.Hand.Publish(interact.HandSample{
				FingerCount:        cmd.Fingers,
				IsPinching:         cmd.Pinching,
				PinchDistance:      cmd.Distance,
				NormalizedPosition: [2]float64{cmd.X, cmd.Y},
				Detected:           cmd.Detected,
			})
		}
	case "shape":
		k, err := shape.ParseKind(cmd.Shape)
		if err != nil {
			return err
		}
		s.opts.Engine.SetShape(k)
	case "next":
		s.opts.Engine.NextShape()
	case "mode":
		m, err := interact.ParseMode(cmd.Mode)
		if err != nil {
			return err
		}
		s.opts.Engine.SetMode(m)
	default:
		return errors.New("unknown command")
	}
	return nil
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
}

// PositionsChanged encodes the frame once and queues it for every client.
func (s *Server) PositionsChanged(f *engine.Frame) {
	if f.Index%uint64(s.opts.Every) != 0 {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.clients) == 0 {
		return
	}

	if err := EncodeFrame(&s.buf, f); err != nil {
		s.log.Error("encode frame", "err", err)
		return
	}
	msg := bytes.Clone(s.buf.Bytes())

	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.dropped.Add(1)
		}
	}
}

// Dropped counts frames skipped for slow clients.
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

var _ engine.RenderSink = (*Server)(nil)
