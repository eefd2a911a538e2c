package termgrid

import (
	"image/color"

	"golang.org/x/image/colornames"
)

// DefaultPalette is a 256-color palette in the xterm layout: 16 base
// colors (0-15, taken from the CSS/X11 named colors rather than
// xterm's own values), the 6x6x6 color cube (16-231), and a 24-step
// grayscale ramp (232-255).
var DefaultPalette = buildDefaultPalette()

// ansi16 names the base palette's web-safe color names, in ANSI
// index order, so the base 16 come from a named-color table instead
// of sixteen hand-typed RGB literals.
var ansi16 = []string{
	"black", "maroon", "green", "olive", "navy", "purple", "teal", "silver",
	"gray", "red", "lime", "yellow", "blue", "fuchsia", "aqua", "white",
}

func buildDefaultPalette() [256]color.RGBA {
	var p [256]color.RGBA

	for i, name := range ansi16 {
		c := colornames.Map[name]
		p[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}

	i := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				p[i] = color.RGBA{R: cubeLevel(r), G: cubeLevel(g), B: cubeLevel(b), A: 255}
				i++
			}
		}
	}

	for j := 0; j < 24; j++ {
		gray := uint8(8 + j*10)
		p[232+j] = color.RGBA{R: gray, G: gray, B: gray, A: 255}
	}

	return p
}

func cubeLevel(n int) uint8 {
	if n == 0 {
		return 0
	}
	return uint8(55 + n*40)
}

// DefaultForeground and DefaultBackground are the colors an unset
// Style resolves to.
var (
	DefaultForeground = color.RGBA{R: 229, G: 229, B: 229, A: 255}
	DefaultBackground = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Resolve converts a Color to a concrete RGBA against the given
// palette (nil uses DefaultPalette), falling back to the terminal's
// default foreground/background for an unset color.
func (c Color) Resolve(palette *[256]color.RGBA, fg bool) color.RGBA {
	if palette == nil {
		palette = &DefaultPalette
	}
	switch c.Kind {
	case ColorPalette:
		return palette[c.Palette]
	case ColorRGB:
		return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	default:
		if fg {
			return DefaultForeground
		}
		return DefaultBackground
	}
}
