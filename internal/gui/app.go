// Package gui is the raylib window renderer for the particle cloud.
package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/input"
	"github.com/san-kum/morphcloud/internal/interact"
	"github.com/san-kum/morphcloud/internal/shape"
)

var (
	ColBg      = rl.NewColor(5, 5, 12, 255)
	ColText    = rl.NewColor(170, 170, 190, 255)
	ColTextDim = rl.NewColor(70, 70, 90, 255)
	ColAttract = rl.NewColor(255, 230, 90, 255)
	ColRepel   = rl.NewColor(255, 80, 80, 255)
)

type Options struct {
	Engine  *engine.Engine
	Pointer *input.Pointer
	// Hand is driven from the keyboard when set.
	Hand   *input.Hand
	Width  int
	Height int
	FPS    int
}

type App struct {
	eng     *engine.Engine
	pointer *input.Pointer
	hand    *input.Hand
	camera  rl.Camera3D
	colors  []rl.Color

	t       float64
	fps     int
	paused  bool
	fingers int
	pinch   bool
	frame   *engine.Frame
}

// Run opens the window and blocks until it is closed or Q is pressed. The
// app ticks the engine itself once per rendered frame.
func Run(opts Options) {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = opts.Engine.Config().Render.FPS
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(w), int32(h), "morphcloud")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(fps))
	rl.SetExitKey(0)

	app := newApp(opts, fps)
	app.resize()
	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeyQ) {
			return
		}
		app.Update()
		app.Draw()
	}
}

func newApp(opts Options, fps int) *App {
	pointer := opts.Pointer
	if pointer == nil {
		pointer = input.NewPointer()
	}

	buf := opts.Engine.Buffer()
	colors := make([]rl.Color, buf.N)
	for i := range colors {
		colors[i] = rl.NewColor(
			uint8(buf.Colors[i*3]*255),
			uint8(buf.Colors[i*3+1]*255),
			uint8(buf.Colors[i*3+2]*255),
			220,
		)
	}

	cam := opts.Engine.Camera()
	return &App{
		eng:     opts.Engine,
		pointer: pointer,
		hand:    opts.Hand,
		colors:  colors,
		fps:     fps,
		camera: rl.NewCamera3D(
			toRL(cam.Position),
			rl.NewVector3(0, 0, 0),
			toRL(cam.Up),
			float32(cam.FOV),
			rl.CameraPerspective,
		),
	}
}

func (a *App) resize() {
	a.eng.Resize(rl.GetScreenWidth(), rl.GetScreenHeight())
}

func (a *App) Update() {
	if rl.IsWindowResized() {
		a.resize()
	}
	a.keys()
	a.mouse()

	if a.paused && a.frame != nil {
		return
	}

	if a.hand != nil && a.eng.Mode() == interact.Hand {
		s, _ := a.pointer.Pointer()
		a.hand.Publish(interact.HandSample{
			FingerCount:        a.fingers,
			IsPinching:         a.pinch,
			NormalizedPosition: [2]float64{(s.NDC[0] + 1) / 2, (1 - s.NDC[1]) / 2},
			Detected:           true,
		})
	}

	a.t += 1 / float64(a.fps)
	a.frame = a.eng.Tick(a.t)
}

func (a *App) keys() {
	switch {
	case rl.IsKeyPressed(rl.KeySpace):
		a.paused = !a.paused
	case rl.IsKeyPressed(rl.KeyS), rl.IsKeyPressed(rl.KeyTab):
		a.eng.NextShape()
	case rl.IsKeyPressed(rl.KeyM):
		if a.eng.Mode() == interact.Pointer {
			a.eng.SetMode(interact.Hand)
		} else {
			a.eng.SetMode(interact.Pointer)
		}
	case rl.IsKeyPressed(rl.KeyP):
		a.pinch = !a.pinch
	}

	for n := 0; n <= 5; n++ {
		if rl.IsKeyPressed(rl.KeyZero + int32(n)) {
			a.fingers = n
		}
	}
	for i, k := range shape.All() {
		if rl.IsKeyPressed(rl.KeyF1 + int32(i)) {
			a.eng.SetShape(k)
		}
	}
}

func (a *App) mouse() {
	pos := rl.GetMousePosition()
	w, h := rl.GetScreenWidth(), rl.GetScreenHeight()
	if !rl.IsCursorOnScreen() {
		a.pointer.Leave()
		return
	}
	a.pointer.Move(input.ScreenToNDC(float64(pos.X), float64(pos.Y), w, h))
	a.pointer.Press(rl.IsMouseButtonDown(rl.MouseLeftButton))
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	if a.frame != nil {
		rl.BeginMode3D(a.camera)
		a.drawCloud(a.frame)
		a.drawInteraction(a.frame.Interaction)
		rl.EndMode3D()
		a.drawHUD(a.frame)
	}

	rl.EndDrawing()
}

func (a *App) drawCloud(f *engine.Frame) {
	n := len(f.Positions) / 3
	for i := 0; i < n; i++ {
		local := mgl64.Vec3{float64(f.Positions[i*3]), float64(f.Positions[i*3+1]), float64(f.Positions[i*3+2])}
		p := mgl64.TransformCoordinate(local, f.Transform)
		rl.DrawPoint3D(toRL(p), a.colors[i])
	}
}

func (a *App) drawInteraction(st interact.State) {
	if !st.Active {
		return
	}
	col := ColRepel
	radius := float32(a.eng.Config().Morph.RepelRadius)
	if st.Attracting {
		col = ColAttract
		radius = float32(a.eng.Config().Morph.AttractRadius)
	}
	rl.DrawCircle3D(toRL(st.Point), radius, rl.NewVector3(0, 0, 1), 0, rl.ColorAlpha(col, 0.4))
	rl.DrawSphere(toRL(st.Point), 0.6, col)
}

func (a *App) drawHUD(f *engine.Frame) {
	rl.DrawText("morphcloud", 30, 30, 24, ColText)
	rl.DrawText(fmt.Sprintf(":: %s", f.Shape), 180, 34, 18, ColText)

	status := "RUNNING"
	if a.paused {
		status = "PAUSED"
	}
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())
	rl.DrawText(status, w-130, 30, 16, ColText)

	mode := f.Interaction.Mode.String()
	if a.eng.Mode() == interact.Hand && a.hand != nil {
		mode = fmt.Sprintf("hand (%d fingers, pinch=%v)", a.fingers, a.pinch)
	}
	rl.DrawText(fmt.Sprintf("mode      %s", mode), 30, 70, 14, ColText)
	rl.DrawText(fmt.Sprintf("intensity %.2f", f.Intensity), 30, 90, 14, ColText)
	rl.DrawText(fmt.Sprintf("pulled    %d  pushed %d", f.Stats.Attracted, f.Stats.Repelled), 30, 110, 14, ColText)

	if a.eng.Mode() == interact.Hand {
		rl.DrawText(fmt.Sprintf("gesture   %v", a.eng.GestureWindow()), 30, 130, 14, ColTextDim)
	}

	rl.DrawText(fmt.Sprintf("%d FPS  %d particles", rl.GetFPS(), len(f.Positions)/3), 30, h-40, 14, ColTextDim)
	rl.DrawText("[SPACE] PAUSE  [S] SHAPE  [F1-F5] PICK  [M] MODE  [0-5] FINGERS  [P] PINCH  [Q] QUIT", w-760, h-40, 14, ColTextDim)
}

func toRL(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v.X()), float32(v.Y()), float32(v.Z()))
}
