package geotiff

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
)

var registerDrivers = sync.OnceFunc(godal.RegisterAll)

// WriteFile creates path as a GeoTIFF holding r.
func WriteFile(path string, r domain.Raster) (err error) {
	width, height := r.Width(), r.Height()
	if width <= 0 || height <= 0 || len(r.Grid.Data) != width*height {
		return fmt.Errorf("%w: cannot encode %dx%d raster with %d samples", domain.ErrFormat, width, height, len(r.Grid.Data))
	}
	registerDrivers()

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, width, height,
		godal.CreationOption("COMPRESS=DEFLATE"))
	if err != nil {
		return fmt.Errorf("%w: create raster: %w", domain.ErrIO, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close raster: %w", domain.ErrIO, cerr)
		}
	}()

	t := r.Transform
	if err := ds.SetGeoTransform([6]float64{t.OriginX, t.PixelSize, 0, t.OriginY, 0, -t.PixelSize}); err != nil {
		return fmt.Errorf("%w: set transform: %w", domain.ErrIO, err)
	}

	sr, err := godal.NewSpatialRefFromEPSG(r.EPSG)
	if err != nil {
		return fmt.Errorf("%w: EPSG:%d: %w", domain.ErrFormat, r.EPSG, err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return fmt.Errorf("%w: set crs: %w", domain.ErrIO, err)
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(float64(r.NoData)); err != nil {
		return fmt.Errorf("%w: set nodata: %w", domain.ErrIO, err)
	}
	if err := band.Write(0, 0, r.Grid.Data, width, height); err != nil {
		return fmt.Errorf("%w: write samples: %w", domain.ErrIO, err)
	}
	return nil
}

// ReadFile loads the GeoTIFF at path. A missing or unreadable file is an
// ErrIO; a file GDAL cannot interpret as a north-up single-band float32
// GeoTIFF with a CRS and nodata is an ErrFormat.
func ReadFile(path string) (domain.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Raster{}, fmt.Errorf("%w: open raster: %w", domain.ErrIO, err)
	}
	f.Close()
	registerDrivers()

	ds, err := godal.Open(path)
	if err != nil {
		return domain.Raster{}, fmt.Errorf("%w: open raster: %w", domain.ErrFormat, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands != 1 || st.DataType != godal.Float32 {
		return domain.Raster{}, fmt.Errorf("%w: want 1 float32 band, got %d %v", domain.ErrFormat, st.NBands, st.DataType)
	}
	if st.SizeX <= 0 || st.SizeY <= 0 {
		return domain.Raster{}, fmt.Errorf("%w: invalid raster size %dx%d", domain.ErrFormat, st.SizeX, st.SizeY)
	}

	transform, err := readTransform(ds)
	if err != nil {
		return domain.Raster{}, err
	}
	epsg, err := readEPSG(ds)
	if err != nil {
		return domain.Raster{}, err
	}

	band := ds.Bands()[0]
	nodata, ok := band.NoData()
	if !ok {
		return domain.Raster{}, fmt.Errorf("%w: missing nodata", domain.ErrFormat)
	}

	g := domain.NewGrid(st.SizeY, st.SizeX)
	if err := band.Read(0, 0, g.Data, st.SizeX, st.SizeY); err != nil {
		return domain.Raster{}, fmt.Errorf("%w: read samples: %w", domain.ErrFormat, err)
	}

	return domain.Raster{
		Grid:      g,
		Transform: transform,
		EPSG:      epsg,
		NoData:    float32(nodata),
	}, nil
}

func readTransform(ds *godal.Dataset) (domain.GeoTransform, error) {
	gt, err := ds.GeoTransform()
	if err != nil {
		return domain.GeoTransform{}, fmt.Errorf("%w: missing georeferencing: %w", domain.ErrFormat, err)
	}
	if gt[2] != 0 || gt[4] != 0 {
		return domain.GeoTransform{}, fmt.Errorf("%w: rotated transform %v", domain.ErrFormat, gt)
	}
	if !(gt[1] > 0) || gt[5] != -gt[1] {
		return domain.GeoTransform{}, fmt.Errorf("%w: non-square or south-up pixels %vx%v", domain.ErrFormat, gt[1], gt[5])
	}
	return domain.GeoTransform{OriginX: gt[0], OriginY: gt[3], PixelSize: gt[1]}, nil
}

func readEPSG(ds *godal.Dataset) (int, error) {
	if ds.Projection() == "" {
		return 0, fmt.Errorf("%w: missing crs", domain.ErrFormat)
	}
	sr := ds.SpatialRef()
	defer sr.Close()

	code, err := strconv.Atoi(sr.AuthorityCode(""))
	if err != nil {
		return 0, fmt.Errorf("%w: crs has no EPSG code", domain.ErrFormat)
	}
	return code, nil
}
