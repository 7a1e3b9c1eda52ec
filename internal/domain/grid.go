package domain

import (
	"fmt"
	"math"
)

// EPSGWGS84 is the geographic CRS every raster in this pipeline carries.
const EPSGWGS84 = 4326

// tilingTolerance absorbs float rounding in origin + cols*pixelSize.
const tilingTolerance = 1e-9

// GridSpec describes the fixed geometry of a gridded source.
type GridSpec struct {
	Rows      int
	Cols      int
	PixelSize float64 // degrees per cell, both axes
	OriginX   float64 // longitude of the left edge
	OriginY   float64 // latitude of the top edge
	NoData    float32
}

// DefaultGridSpec returns the PERSIANN daily geometry: 400x1440 cells at
// 0.25°, spanning 50°N to 50°S, nodata -9999.
func DefaultGridSpec() GridSpec {
	return GridSpec{
		Rows:      400,
		Cols:      1440,
		PixelSize: 0.25,
		OriginX:   -180,
		OriginY:   50,
		NoData:    -9999,
	}
}

// ByteLen is the exact size of a raw buffer for this grid.
func (s GridSpec) ByteLen() int {
	return s.Rows * s.Cols * 4
}

// Validate checks that the grid tiles the full -180°..180° longitude span and
// fits inside valid latitudes.
func (s GridSpec) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("%w: grid dimensions must be positive, got %dx%d", ErrConfiguration, s.Rows, s.Cols)
	}
	if s.Cols%2 != 0 {
		return fmt.Errorf("%w: grid columns must be even for half-row rotation, got %d", ErrConfiguration, s.Cols)
	}
	if !(s.PixelSize > 0) || math.IsInf(s.PixelSize, 0) {
		return fmt.Errorf("%w: pixel size must be positive and finite, got %v", ErrConfiguration, s.PixelSize)
	}
	if math.IsNaN(s.OriginY) || math.IsInf(s.OriginY, 0) {
		return fmt.Errorf("%w: origin y must be finite, got %v", ErrConfiguration, s.OriginY)
	}
	if s.OriginX != -180 {
		return fmt.Errorf("%w: origin x must be -180, got %v", ErrConfiguration, s.OriginX)
	}
	if east := s.OriginX + float64(s.Cols)*s.PixelSize; math.Abs(east-180) > tilingTolerance {
		return fmt.Errorf("%w: %d columns of %v° end at %v, want 180", ErrConfiguration, s.Cols, s.PixelSize, east)
	}
	if s.OriginY > 90 || s.OriginY-float64(s.Rows)*s.PixelSize < -90-tilingTolerance {
		return fmt.Errorf("%w: %d rows of %v° from %v exceed latitude bounds", ErrConfiguration, s.Rows, s.PixelSize, s.OriginY)
	}
	if !(s.NoData < 0) {
		return fmt.Errorf("%w: nodata must be negative, got %v", ErrConfiguration, s.NoData)
	}
	return nil
}

// Transform returns the affine transform of a full grid with this spec.
func (s GridSpec) Transform() GeoTransform {
	return GeoTransform{OriginX: s.OriginX, OriginY: s.OriginY, PixelSize: s.PixelSize}
}

// Grid is a rows x cols matrix of samples stored row-major. Grids are treated
// as immutable once built; every stage allocates a new one.
type Grid struct {
	Rows int
	Cols int
	Data []float32
}

// NewGrid allocates a zero-filled grid.
func NewGrid(rows, cols int) Grid {
	return Grid{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// At returns the sample at (row, col).
func (g Grid) At(row, col int) float32 {
	return g.Data[row*g.Cols+col]
}

// Row returns a read-only view of row r.
func (g Grid) Row(r int) []float32 {
	return g.Data[r*g.Cols : (r+1)*g.Cols]
}

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	out := Grid{Rows: g.Rows, Cols: g.Cols, Data: make([]float32, len(g.Data))}
	copy(out.Data, g.Data)
	return out
}
