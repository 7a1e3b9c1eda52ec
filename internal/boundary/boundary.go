// Package boundary loads region-of-interest polygons from GeoJSON or ESRI
// shapefiles.
package boundary

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
)

// wgs84 is the CRS shapefile boundaries are transformed into.
const wgs84 = "+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs"

// Boundary is a read-only set of polygons in EPSG:4326 lon/lat.
type Boundary struct {
	Path   string
	Shapes []geom.Polygonal
}

// Bounds returns the envelope of every shape.
func (b *Boundary) Bounds() domain.Extent {
	ext := domain.Extent{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, s := range b.Shapes {
		sb := s.Bounds()
		ext.MinX = math.Min(ext.MinX, sb.Min.X)
		ext.MinY = math.Min(ext.MinY, sb.Min.Y)
		ext.MaxX = math.Max(ext.MaxX, sb.Max.X)
		ext.MaxY = math.Max(ext.MaxY, sb.Max.Y)
	}
	return ext
}

// Contains reports whether (x, y) lies inside or on the edge of any shape.
func (b *Boundary) Contains(x, y float64) bool {
	p := geom.Point{X: x, Y: y}
	for _, s := range b.Shapes {
		if p.Within(s) != geom.Outside {
			return true
		}
	}
	return false
}

// Load reads the boundary at path. Files ending in .shp are decoded as
// shapefiles; anything else is parsed as GeoJSON.
func Load(path string) (*Boundary, error) {
	var (
		shapes []geom.Polygonal
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		shapes, err = loadShapefile(path)
	} else {
		shapes, err = loadGeoJSON(path)
	}
	if err != nil {
		return nil, err
	}
	if len(shapes) == 0 {
		return nil, fmt.Errorf("%w: %s contains no polygons", domain.ErrBoundary, path)
	}
	return &Boundary{Path: path, Shapes: shapes}, nil
}

// geoJSONDoc covers FeatureCollection, Feature, GeometryCollection and bare
// geometry objects.
type geoJSONDoc struct {
	Type       string            `json:"type"`
	Features   []geoJSONDoc      `json:"features"`
	Geometry   json.RawMessage   `json:"geometry"`
	Geometries []json.RawMessage `json:"geometries"`
}

func loadGeoJSON(path string) ([]geom.Polygonal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrBoundary, path, err)
	}
	return parseGeoJSON(data)
}

func parseGeoJSON(data []byte) ([]geom.Polygonal, error) {
	var doc geoJSONDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse geojson: %w", domain.ErrBoundary, err)
	}

	switch doc.Type {
	case "FeatureCollection":
		var out []geom.Polygonal
		for i, f := range doc.Features {
			shapes, err := decodeGeometry(f.Geometry)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			out = append(out, shapes...)
		}
		return out, nil
	case "Feature":
		return decodeGeometry(doc.Geometry)
	default:
		return decodeGeometry(data)
	}
}

func decodeGeometry(raw json.RawMessage) ([]geom.Polygonal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var head geoJSONDoc
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: parse geometry: %w", domain.ErrBoundary, err)
	}
	if head.Type == "GeometryCollection" {
		var out []geom.Polygonal
		for _, g := range head.Geometries {
			shapes, err := decodeGeometry(g)
			if err != nil {
				return nil, err
			}
			out = append(out, shapes...)
		}
		return out, nil
	}

	g, err := geojson.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s geometry: %w", domain.ErrBoundary, head.Type, err)
	}
	p, ok := g.(geom.Polygonal)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported geometry type %s, want Polygon or MultiPolygon", domain.ErrBoundary, head.Type)
	}
	return []geom.Polygonal{p}, nil
}

func loadShapefile(path string) ([]geom.Polygonal, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open shapefile %s: %w", domain.ErrBoundary, path, err)
	}
	defer d.Close()

	// A missing .prj is taken to mean the shapes are already lon/lat.
	var trans proj.Transformer
	if src, err := d.SR(); err == nil {
		dst, err := proj.Parse(wgs84)
		if err != nil {
			return nil, fmt.Errorf("%w: parse wgs84: %w", domain.ErrBoundary, err)
		}
		if trans, err = src.NewTransform(dst); err != nil {
			return nil, fmt.Errorf("%w: shapefile projection: %w", domain.ErrBoundary, err)
		}
	}

	var out []geom.Polygonal
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if trans != nil {
			if g, err = g.Transform(trans); err != nil {
				return nil, fmt.Errorf("%w: transform shape: %w", domain.ErrBoundary, err)
			}
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("%w: shapefile %s holds non-polygon shapes", domain.ErrBoundary, path)
		}
		out = append(out, p)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("%w: read shapefile %s: %w", domain.ErrBoundary, path, err)
	}
	return out, nil
}
