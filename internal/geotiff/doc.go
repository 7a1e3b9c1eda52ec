// Package geotiff reads and writes single-band float32 GeoTIFF rasters
// through GDAL.
//
// Rasters carry a north-up affine transform with square pixels, an EPSG
// geographic CRS and a nodata value. Files are DEFLATE compressed, which
// keeps a write followed by a read bit for bit.
//
// Building this package requires cgo and the GDAL shared library.
package geotiff
