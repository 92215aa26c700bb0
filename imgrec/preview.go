package imgrec

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/disintegration/gift"

	"github.com/ciboulette/astrolab/util"
)

// Gray16 returns f as an image, linearly stretched so the faintest pixel is
// black and the brightest is white
func (f Frame) Gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	if len(f.Data) == 0 {
		return img
	}
	lo, hi := f.Data[0], f.Data[0]
	for _, v := range f.Data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := float64(int32(hi) - int32(lo))
	if span == 0 {
		span = 1
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			v := util.Clamp(float64(int32(f.At(x, y))-int32(lo))/span, 0, 1)
			img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535)})
		}
	}
	return img
}

// Preview returns f downscaled to at most maxWidth pixels wide.  A maxWidth
// of zero or more than the frame width keeps the frame size.
func Preview(f Frame, maxWidth int) image.Image {
	src := f.Gray16()
	if maxWidth <= 0 || maxWidth >= f.Width {
		return src
	}
	g := gift.New(gift.Resize(maxWidth, 0, gift.LinearResampling))
	dst := image.NewGray16(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}

// WritePNG encodes a preview of f as PNG
func WritePNG(w io.Writer, f Frame, maxWidth int) error {
	return png.Encode(w, Preview(f, maxWidth))
}
