package imgrec

import "errors"

// ErrEmptyImage is returned when rotating an image with no pixels
var ErrEmptyImage = errors.New("empty image")

// Frame is a 16-bit image in FITS order.  Width is NAXIS1, the fast axis of
// Data.
type Frame struct {
	Width, Height int
	Data          []int16
}

// At returns the pixel at column x of row y
func (f Frame) At(x, y int) int16 {
	return f.Data[y*f.Width+x]
}

// Rotate90 turns a camera readout indexed [x][y] counterclockwise by 90
// degrees and casts it to int16, wrapping out of range values.  The result
// has Width len(px) and Height len(px[0]); row r column c of the result holds
// px[c][Height-1-r].
func Rotate90(px [][]int32) (Frame, error) {
	if len(px) == 0 || len(px[0]) == 0 {
		return Frame{}, ErrEmptyImage
	}
	nx, ny := len(px), len(px[0])
	out := Frame{Width: nx, Height: ny, Data: make([]int16, nx*ny)}
	for r := 0; r < ny; r++ {
		src := ny - 1 - r
		row := out.Data[r*nx : (r+1)*nx]
		for c := 0; c < nx; c++ {
			if len(px[c]) != ny {
				return Frame{}, errors.New("ragged image")
			}
			row[c] = int16(px[c][src])
		}
	}
	return out, nil
}
