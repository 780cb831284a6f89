// Package colors resolves letterhead hex colors into RGB values with
// fallbacks, so a malformed color never aborts a render.
package colors

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is an 8-bit per channel color.
type RGB struct {
	R, G, B uint8
}

// Hex formats c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Fallbacks used when a configured color cannot be parsed.
var (
	FallbackPrimary = RGB{17, 28, 48}
	FallbackAccent  = RGB{229, 166, 62}
	FallbackInk     = RGB{30, 35, 48}
	FallbackMuted   = RGB{102, 112, 126}
	FallbackPaper   = RGB{255, 255, 255}
)

// NeutralGray is what Lighten returns for malformed input.
const NeutralGray = "#A0AEC0"

// HexToRGB parses "#rgb", "#rrggbb" or the same without '#'. Surrounding
// whitespace and case are ignored.
func HexToRGB(hex string) (RGB, bool) {
	s := strings.TrimSpace(strings.Replace(hex, "#", "", 1))
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// Resolve parses hex or returns fallback.
func Resolve(hex string, fallback RGB) RGB {
	if c, ok := HexToRGB(hex); ok {
		return c
	}
	return fallback
}

// Lighten mixes hex with white by ratio (clamped to [0,1]) and returns the
// result as #rrggbb.
func Lighten(hex string, ratio float64) string {
	c, ok := HexToRGB(hex)
	if !ok {
		return NeutralGray
	}
	ratio = math.Max(0, math.Min(1, ratio))
	mix := func(ch uint8) uint8 {
		return uint8(math.Round(float64(ch) + (255-float64(ch))*ratio))
	}
	return RGB{mix(c.R), mix(c.G), mix(c.B)}.Hex()
}
