package domain

import (
	"fmt"
	"math"
)

// GeoTransform is a north-up affine transform with square pixels, anchored at
// the top-left corner of cell (0, 0).
type GeoTransform struct {
	OriginX   float64
	OriginY   float64
	PixelSize float64
}

// Apply maps fractional grid coordinates to geographic coordinates.
func (t GeoTransform) Apply(row, col float64) (x, y float64) {
	return t.OriginX + col*t.PixelSize, t.OriginY - row*t.PixelSize
}

// Invert maps geographic coordinates to fractional grid coordinates.
func (t GeoTransform) Invert(x, y float64) (row, col float64) {
	return (t.OriginY - y) / t.PixelSize, (x - t.OriginX) / t.PixelSize
}

// Extent is an axis-aligned bounding box in CRS units.
type Extent struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Raster is a single-band float32 grid with georeferencing metadata.
type Raster struct {
	Grid      Grid
	Transform GeoTransform
	EPSG      int
	NoData    float32
}

// Georeference wraps a normalized grid in the transform, CRS and nodata value
// described by spec.
func Georeference(g Grid, spec GridSpec) (Raster, error) {
	if g.Rows != spec.Rows || g.Cols != spec.Cols || len(g.Data) != g.Rows*g.Cols {
		return Raster{}, fmt.Errorf("%w: grid is %dx%d with %d samples, spec wants %dx%d",
			ErrFormat, g.Rows, g.Cols, len(g.Data), spec.Rows, spec.Cols)
	}
	return Raster{
		Grid:      g,
		Transform: spec.Transform(),
		EPSG:      EPSGWGS84,
		NoData:    spec.NoData,
	}, nil
}

// Width is the number of columns.
func (r Raster) Width() int { return r.Grid.Cols }

// Height is the number of rows.
func (r Raster) Height() int { return r.Grid.Rows }

// Bounds returns the outer edges of the raster.
func (r Raster) Bounds() Extent {
	minX, maxY := r.Transform.Apply(0, 0)
	maxX, minY := r.Transform.Apply(float64(r.Height()), float64(r.Width()))
	return Extent{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// CellCenter returns the geographic center of cell (row, col).
func (r Raster) CellCenter(row, col int) (x, y float64) {
	return r.Transform.Apply(float64(row)+0.5, float64(col)+0.5)
}

// Index returns the cell containing (x, y). Points on a cell's top or left
// edge belong to that cell.
func (r Raster) Index(x, y float64) (row, col int, ok bool) {
	fr, fc := r.Transform.Invert(x, y)
	row, col = int(math.Floor(fr)), int(math.Floor(fc))
	if row < 0 || col < 0 || row >= r.Height() || col >= r.Width() {
		return 0, 0, false
	}
	return row, col, true
}

// At samples the raster at geographic coordinate (x, y).
func (r Raster) At(x, y float64) (float32, bool) {
	row, col, ok := r.Index(x, y)
	if !ok {
		return 0, false
	}
	return r.Grid.At(row, col), true
}

// IsNoData reports whether v is the raster's nodata sentinel.
func (r Raster) IsNoData(v float32) bool {
	return v == r.NoData
}
