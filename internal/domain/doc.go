// Package domain models the PERSIANN daily precipitation grid and the
// georeferenced rasters derived from it.
//
// # Data Source
//
// PERSIANN (Precipitation Estimation from Remotely Sensed Information using
// Artificial Neural Networks) publishes one gzip-compressed binary file per
// day at https://persiann.eng.uci.edu/CHRSdata/PERSIANN/daily/. Remote files
// are named by a Date Code: "ms6s4_d{YY}{DDD}.bin.gz", where YY is the year
// mod 100 and DDD the zero-padded day of year. Local copies are renamed to
// "persiann_{YYYYMMDD}.bin.gz" so they sort by calendar date. See [DateCode].
//
// # Binary Layout
//
// A decompressed file is a headerless sequence of rows*cols big-endian
// IEEE-754 float32 samples in row-major order:
//
//	row 0    -> northernmost band (top latitude)
//	row r    -> top latitude - r*pixel size
//	column 0 -> longitude 0°, columns run eastward to 360°
//
// The default grid is 400 rows x 1440 columns at 0.25°, covering 50°N to 50°S.
// Units are millimetres per day. Negative samples are sensor fill values
// (typically -9999 or -1) and never legitimate precipitation.
//
// # Longitude Repair
//
// GIS tooling expects rows to start at -180°. [DecodeGrid] rotates every row
// left by cols/2 so the sample at 180°E (file column 720) lands in output
// column 0. Rows keep their file order; there is no vertical flip.
//
// # Georeferencing
//
// [Georeference] attaches a north-up affine transform anchored at the
// top-left corner (-180°, top latitude), EPSG:4326 and the nodata sentinel:
//
//	x = OriginX + col*PixelSize
//	y = OriginY - row*PixelSize
//
// The grid must tile the full 360° of longitude; [GridSpec.Validate] enforces
// this at startup.
package domain
