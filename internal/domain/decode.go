package domain

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeGrid parses a raw PERSIANN buffer into a grid whose rows start at
// -180° instead of 0°.
//
// buf must hold exactly spec.Rows*spec.Cols big-endian float32 samples.
// Row order is preserved; each row is rotated left by Cols/2 so that
// out[i] = raw[(i+Cols/2) mod Cols].
func DecodeGrid(buf []byte, spec GridSpec) (Grid, error) {
	if want := spec.ByteLen(); len(buf) != want {
		return Grid{}, fmt.Errorf("%w: grid buffer is %d bytes, want %d (%dx%d float32)",
			ErrFormat, len(buf), want, spec.Rows, spec.Cols)
	}

	cols := spec.Cols
	half := cols / 2
	rowBytes := cols * 4
	g := NewGrid(spec.Rows, cols)

	for r := 0; r < spec.Rows; r++ {
		src := buf[r*rowBytes : (r+1)*rowBytes]
		dst := g.Row(r)
		for c := 0; c < cols; c++ {
			v := math.Float32frombits(binary.BigEndian.Uint32(src[c*4:]))
			dst[(c+cols-half)%cols] = v
		}
	}
	return g, nil
}

// UnrotateRow undoes the half-row rotation, restoring 0°..360° column order.
func UnrotateRow(row []float32) []float32 {
	cols := len(row)
	half := cols / 2
	out := make([]float32, cols)
	for i, v := range row {
		out[(i+half)%cols] = v
	}
	return out
}
