// Package qr draws a deterministic decorative stamp that looks like a QR
// code. It encodes nothing and cannot be scanned.
package qr

import (
	"strings"
	"unicode/utf16"
)

// DefaultDimension is the module count per side of a version-1 QR code.
const DefaultDimension = 21

// DefaultSeed replaces an empty or blank seed.
const DefaultSeed = "default"

const finderSize = 7

// Matrix is a square grid of modules, row-major, true = filled.
type Matrix [][]bool

// Size returns the number of modules per side.
func (m Matrix) Size() int { return len(m) }

// Run is a horizontal span of filled modules in one row.
type Run struct {
	Row, Col, Len int
}

// Runs returns the filled spans of m, top to bottom, left to right.
func (m Matrix) Runs() []Run {
	var runs []Run
	for r, row := range m {
		for c := 0; c < len(row); {
			if !row[c] {
				c++
				continue
			}
			start := c
			for c < len(row) && row[c] {
				c++
			}
			runs = append(runs, Run{Row: r, Col: start, Len: c - start})
		}
	}
	return runs
}

// Generate derives a dimension × dimension matrix from seed. The same seed
// and dimension always yield the same matrix. Matrices of at least 21
// modules get finder patterns in three corners.
func Generate(seed string, dimension int) Matrix {
	if dimension <= 0 {
		return Matrix{}
	}
	if strings.TrimSpace(seed) == "" {
		seed = DefaultSeed
	}
	m := make(Matrix, dimension)
	for i := range m {
		m[i] = make([]bool, dimension)
	}

	rng := newXorshift(hashSeed(seed))
	for r := range m {
		for c := range m[r] {
			m[r][c] = float64(rng.next()%1000)/1000 > 0.5
		}
	}

	if dimension >= DefaultDimension {
		m.finder(0, 0)
		m.finder(dimension-finderSize, 0)
		m.finder(0, dimension-finderSize)
	}
	return m
}

func (m Matrix) finder(x0, y0 int) {
	for y := 0; y < finderSize; y++ {
		for x := 0; x < finderSize; x++ {
			border := x == 0 || y == 0 || x == finderSize-1 || y == finderSize-1
			center := x >= 2 && x <= 4 && y >= 2 && y <= 4
			m[y0+y][x0+x] = border || center
		}
	}
}

// hashSeed is a djb-style multiply-by-33 hash over UTF-16 code units with
// 32-bit two's-complement wraparound.
func hashSeed(seed string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(seed)) {
		h = h*33 + int32(u)
	}
	return h
}

type xorshift struct{ state int32 }

func newXorshift(seed int32) *xorshift {
	if seed == 0 {
		seed = 1
	}
	return &xorshift{state: seed}
}

// next advances the 13/17/5 xorshift. The right shift is arithmetic and
// the result is the absolute value, widened so MinInt32 stays positive.
func (x *xorshift) next() int64 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	v := int64(s)
	if v < 0 {
		v = -v
	}
	return v
}
