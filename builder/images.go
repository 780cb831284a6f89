package builder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/wudi/letterkit/ir/semantic"
)

var (
	// ErrVectorImage is returned for SVG/XML logos, which cannot be embedded as raster images.
	ErrVectorImage = errors.New("vector logo formats are not supported")
	// ErrUnsupportedImage is returned when the bytes are neither PNG nor JPEG.
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// oversample bounds the pixel size of an embedded logo relative to the
// box it is drawn in.
const oversample = 4

// DecodeLogo turns raw logo bytes into an image XObject suitable for a box of
// boxW × boxH points. PNG is tried before JPEG. Plain JPEGs are embedded as is;
// images with more than oversample pixels per point are downscaled first.
func DecodeLogo(data []byte, boxW, boxH float64) (*semantic.Image, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedImage
	}
	if isVector(data) {
		return nil, ErrVectorImage
	}
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		src, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode png: %w", err)
		}
		return FromImage(fit(src, boxW, boxH)), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}):
		return decodeJPEG(data, boxW, boxH)
	}
	return nil, ErrUnsupportedImage
}

func decodeJPEG(data []byte, boxW, boxH float64) (*semantic.Image, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	gray := cfg.ColorModel == color.GrayModel
	cmyk := cfg.ColorModel == color.CMYKModel
	if !cmyk && !oversized(cfg.Width, cfg.Height, boxW, boxH) {
		cs := "DeviceRGB"
		if gray {
			cs = "DeviceGray"
		}
		return &semantic.Image{
			Width:            cfg.Width,
			Height:           cfg.Height,
			ColorSpace:       cs,
			BitsPerComponent: 8,
			Data:             data,
			Filter:           "DCTDecode",
			Interpolate:      true,
		}, nil
	}
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return FromImage(fit(src, boxW, boxH)), nil
}

func isVector(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.ToLower(bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF"))))
	return bytes.HasPrefix(head, []byte("<?xml")) || bytes.Contains(head, []byte("<svg"))
}

func oversized(w, h int, boxW, boxH float64) bool {
	if boxW <= 0 || boxH <= 0 {
		return false
	}
	return float64(w) > oversample*boxW || float64(h) > oversample*boxH
}

func fit(src image.Image, boxW, boxH float64) image.Image {
	b := src.Bounds()
	if !oversized(b.Dx(), b.Dy(), boxW, boxH) {
		return src
	}
	scale := math.Min(oversample*boxW/float64(b.Dx()), oversample*boxH/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// FromImage converts a Go image to an RGB image XObject, with a DeviceGray
// soft mask when any pixel is translucent.
func FromImage(src image.Image) *semantic.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	pixels := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for i := 0; i < w*h; i++ {
		offset := i * 4
		pixels = append(pixels, nrgba.Pix[offset], nrgba.Pix[offset+1], nrgba.Pix[offset+2])
		a := nrgba.Pix[offset+3]
		alpha = append(alpha, a)
		if a < 255 {
			hasAlpha = true
		}
	}

	img := &semantic.Image{
		Width:            w,
		Height:           h,
		ColorSpace:       "DeviceRGB",
		BitsPerComponent: 8,
		Data:             pixels,
		Interpolate:      true,
	}
	if hasAlpha {
		img.SMask = &semantic.Image{
			Width:            w,
			Height:           h,
			ColorSpace:       "DeviceGray",
			BitsPerComponent: 8,
			Data:             alpha,
		}
	}
	return img
}
