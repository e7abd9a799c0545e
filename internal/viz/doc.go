// Package viz renders the particle cloud in the terminal.
//
// The viewer is a Bubble Tea program that ticks the engine itself:
//
//   - [Canvas]: braille dot grid with per-cell colour
//   - [Projector]: camera projection of a frame onto the canvas
//   - [Model]: live view with mouse pointer input and a keyboard hand
//
// # Key Bindings
//
//	Space - Pause/Resume
//	S/Tab - Next shape
//	M     - Toggle pointer/hand mode
//	0-5   - Held finger count in hand mode
//	P     - Toggle pinch in hand mode
//	T     - Cycle themes
//	?     - Show help
package viz
