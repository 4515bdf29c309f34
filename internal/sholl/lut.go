package sholl

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"golang.org/x/image/colornames"
)

// DefaultLUT is the lookup table used when none is configured.
const DefaultLUT = "ice"

var lutStops = map[string][]color.RGBA{
	"ice":   {colornames.Black, colornames.Navy, colornames.Dodgerblue, colornames.Cyan, colornames.White},
	"fire":  {colornames.Black, colornames.Indigo, colornames.Red, colornames.Orange, colornames.Yellow, colornames.White},
	"grays": {colornames.Black, colornames.White},
}

// LUTNames lists the built-in lookup tables.
func LUTNames() []string {
	names := make([]string, 0, len(lutStops))
	for n := range lutStops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LUT returns a 256-entry palette interpolated between the named table's
// anchor colours.
func LUT(name string) (color.Palette, error) {
	stops, ok := lutStops[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown lut %q (have %s)", name, strings.Join(LUTNames(), ", "))
	}
	return gradient(stops, 256), nil
}

func gradient(stops []color.RGBA, n int) color.Palette {
	pal := make(color.Palette, n)
	spans := len(stops) - 1
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1) * float64(spans)
		k := int(t)
		if k >= spans {
			k = spans - 1
		}
		f := t - float64(k)
		a, b := stops[k], stops[k+1]
		pal[i] = color.RGBA{
			R: lerp8(a.R, b.R, f),
			G: lerp8(a.G, b.G, f),
			B: lerp8(a.B, b.B, f),
			A: 255,
		}
	}
	return pal
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5)
}
