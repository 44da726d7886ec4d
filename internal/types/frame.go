package types

import "fmt"

// Color is an RGB triple.
type Color struct {
	R, G, B uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	ColorWhite   = Color{R: 255, G: 255, B: 255}
	ColorBlue    = Color{B: 255}
	ColorMagenta = Color{R: 255, B: 255}
)

const (
	// BrightnessFull is used when a node is highlighted.
	BrightnessFull uint8 = 255
	// BrightnessBase is used for the idle state.
	BrightnessBase uint8 = 128
)

// Frame is a whole-strip fill applied to every strip of a node.
type Frame struct {
	Color      Color
	Brightness uint8
}

var (
	// HighlightFrame is shown when a trigger addresses this node.
	HighlightFrame = Frame{Color: ColorMagenta, Brightness: BrightnessFull}
	// BaseFrame is the idle state restored by a clear message.
	BaseFrame = Frame{Color: ColorBlue, Brightness: BrightnessBase}
	// StartupFrame is flashed once when the strips are initialised.
	StartupFrame = Frame{Color: ColorWhite, Brightness: BrightnessBase}
)
