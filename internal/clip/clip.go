// Package clip crops a raster to a boundary and masks cells outside it.
//
// Semantics follow rasterio's mask(crop=True, all_touched=False): the output
// window is the boundary envelope snapped outward to whole pixels, and a cell
// keeps its value only when its center falls inside (or on the edge of) a
// boundary polygon.
package clip

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/precip-grid-etl/internal/boundary"
	"github.com/couchcryptid/precip-grid-etl/internal/domain"
)

// snapEpsilon absorbs float noise when snapping bounds to pixel edges.
const snapEpsilon = 1e-6

// Window is a half-open pixel range [Row0, Row1) x [Col0, Col1).
type Window struct {
	Row0, Row1 int
	Col0, Col1 int
}

// Empty reports whether the window covers no cells.
func (w Window) Empty() bool {
	return w.Row0 >= w.Row1 || w.Col0 >= w.Col1
}

// WindowFor snaps ext outward onto the pixel grid of a rows x cols raster
// with transform t, clamped to the raster.
func WindowFor(t domain.GeoTransform, rows, cols int, ext domain.Extent) Window {
	top, left := t.Invert(ext.MinX, ext.MaxY)
	bottom, right := t.Invert(ext.MaxX, ext.MinY)
	return Window{
		Row0: clamp(int(math.Floor(top+snapEpsilon)), 0, rows),
		Row1: clamp(int(math.Ceil(bottom-snapEpsilon)), 0, rows),
		Col0: clamp(int(math.Floor(left+snapEpsilon)), 0, cols),
		Col1: clamp(int(math.Ceil(right-snapEpsilon)), 0, cols),
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// CheckOverlap fails with ErrBoundary when b does not intersect a raster
// laid out by spec. Run it once at startup.
func CheckOverlap(b *boundary.Boundary, spec domain.GridSpec) error {
	w := WindowFor(spec.Transform(), spec.Rows, spec.Cols, b.Bounds())
	if w.Empty() {
		ext := b.Bounds()
		return fmt.Errorf("%w: boundary %s (%.4f,%.4f)-(%.4f,%.4f) does not overlap the grid",
			domain.ErrBoundary, b.Path, ext.MinX, ext.MinY, ext.MaxX, ext.MaxY)
	}
	return nil
}

// Masker clips rasters to a fixed boundary.
type Masker struct {
	boundary *boundary.Boundary
}

// New creates a Masker for b.
func New(b *boundary.Boundary) *Masker {
	return &Masker{boundary: b}
}

// Clip returns a new raster covering the boundary window of r, with cells
// whose centers fall outside every polygon set to r.NoData.
func (m *Masker) Clip(ctx context.Context, r domain.Raster) (domain.Raster, error) {
	w := WindowFor(r.Transform, r.Height(), r.Width(), m.boundary.Bounds())
	if w.Empty() {
		return domain.Raster{}, fmt.Errorf("%w: boundary does not overlap raster", domain.ErrBoundary)
	}

	out := domain.NewGrid(w.Row1-w.Row0, w.Col1-w.Col0)
	for row := w.Row0; row < w.Row1; row++ {
		if err := ctx.Err(); err != nil {
			return domain.Raster{}, err
		}
		dst := out.Row(row - w.Row0)
		for col := w.Col0; col < w.Col1; col++ {
			x, y := r.CellCenter(row, col)
			if m.boundary.Contains(x, y) {
				dst[col-w.Col0] = r.Grid.At(row, col)
			} else {
				dst[col-w.Col0] = r.NoData
			}
		}
	}

	originX, originY := r.Transform.Apply(float64(w.Row0), float64(w.Col0))
	return domain.Raster{
		Grid: out,
		Transform: domain.GeoTransform{
			OriginX:   originX,
			OriginY:   originY,
			PixelSize: r.Transform.PixelSize,
		},
		EPSG:   r.EPSG,
		NoData: r.NoData,
	}, nil
}
