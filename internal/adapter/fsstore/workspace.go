// Package fsstore keeps daily inputs, intermediates and outputs on the local
// filesystem.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/precip-grid-etl/internal/domain"
	"github.com/couchcryptid/precip-grid-etl/internal/geotiff"
)

const (
	lockName      = ".precip-etl.lock"
	partialSuffix = ".part"
)

// ErrLocked is returned by Lock when another run holds the workspace.
var ErrLocked = errors.New("workspace is locked by another run")

// Workspace lays out artifacts as:
//
//	<input>/persiann_YYYYMMDD.bin.gz   downloaded input
//	<input>/YYYYMMDD.bin               decompressed grid (transient)
//	<input>/YYYYMMDD.tif               full-globe raster (transient)
//	<output>/persiann_YYYYMMDD_cdp.tif clipped raster
//
// It implements pipeline.Workspace.
type Workspace struct {
	inputDir  string
	outputDir string
	lock      *flock.Flock
	logger    *slog.Logger
}

// New creates both directories if needed.
func New(inputDir, outputDir string, logger *slog.Logger) (*Workspace, error) {
	for _, dir := range []string{inputDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", domain.ErrIO, dir, err)
		}
	}
	return &Workspace{
		inputDir:  inputDir,
		outputDir: outputDir,
		lock:      flock.New(filepath.Join(inputDir, lockName)),
		logger:    logger,
	}, nil
}

// InputDir returns the directory inputs are discovered in.
func (w *Workspace) InputDir() string { return w.inputDir }

// Lock takes an exclusive, non-blocking lock on the workspace so that two
// runs never share intermediate file names.
func (w *Workspace) Lock() (unlock func() error, err error) {
	ok, err := w.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire workspace lock: %w", domain.ErrIO, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return w.lock.Unlock, nil
}

// Discover lists input files in date order.
func (w *Workspace) Discover(_ context.Context) ([]domain.Input, error) {
	entries, err := os.ReadDir(w.inputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", domain.ErrIO, w.inputDir, err)
	}

	var inputs []domain.Input
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		date, ok := domain.ParseInputName(e.Name())
		if !ok {
			if e.Name() != lockName {
				w.logger.Debug("ignoring unrecognized file", "name", e.Name())
			}
			continue
		}
		inputs = append(inputs, domain.Input{Date: date, Path: filepath.Join(w.inputDir, e.Name())})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Date.Before(inputs[j].Date) })
	return inputs, nil
}

// InputPath is where the downloaded file for date lives.
func (w *Workspace) InputPath(date time.Time) string {
	return filepath.Join(w.inputDir, domain.InputName(date))
}

// HasInput reports whether the daily file for date has been downloaded.
func (w *Workspace) HasInput(date time.Time) (bool, error) {
	_, err := os.Stat(w.InputPath(date))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat input: %w", domain.ErrIO, err)
	}
}

// SaveInput streams r into the input file for date. The file only appears
// under its final name once fully written, so Discover never sees a partial
// download.
func (w *Workspace) SaveInput(date time.Time, r io.Reader) (path string, err error) {
	path = w.InputPath(date)
	tmp := path + partialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("%w: create download: %w", domain.ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("%w: write download: %w", domain.ErrIO, err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("%w: close download: %w", domain.ErrIO, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("%w: publish download: %w", domain.ErrIO, err)
	}
	return path, nil
}

// OutputPath is where the clipped raster for in is persisted.
func (w *Workspace) OutputPath(in domain.Input) string {
	return filepath.Join(w.outputDir, domain.OutputName(in.Date))
}

func (w *Workspace) rawPath(in domain.Input) string {
	return filepath.Join(w.inputDir, domain.RawName(in.Date))
}

func (w *Workspace) rasterPath(in domain.Input) string {
	return filepath.Join(w.inputDir, domain.IntermediateRasterName(in.Date))
}

// Persisted reports whether a complete output exists. Outputs are renamed
// into place, so a regular file at the output path is always complete.
func (w *Workspace) Persisted(in domain.Input) (bool, error) {
	info, err := os.Stat(w.OutputPath(in))
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat output: %w", domain.ErrIO, err)
	}
}

// Decompress gunzips the input into YYYYMMDD.bin and returns its path. At most
// maxBytes+1 bytes are written, enough for the decoder to reject an oversized
// stream without expanding all of it.
func (w *Workspace) Decompress(_ context.Context, in domain.Input, maxBytes int64) (path string, err error) {
	src, err := os.Open(in.Path)
	if err != nil {
		return "", fmt.Errorf("%w: open input: %w", domain.ErrIO, err)
	}
	defer src.Close()

	zr, err := gzip.NewReader(src)
	if err != nil {
		return "", fmt.Errorf("%w: gzip header: %w", domain.ErrIO, err)
	}
	defer zr.Close()

	path = w.rawPath(in)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create raw grid: %w", domain.ErrIO, err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close raw grid: %w", domain.ErrIO, cerr)
		}
	}()

	if _, err := io.Copy(dst, io.LimitReader(zr, maxBytes+1)); err != nil {
		return "", fmt.Errorf("%w: decompress %s: %w", domain.ErrIO, filepath.Base(in.Path), err)
	}
	return path, nil
}

// ReadRaw loads a decompressed grid buffer.
func (w *Workspace) ReadRaw(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read raw grid: %w", domain.ErrIO, err)
	}
	return data, nil
}

// WriteIntermediate stores the full-globe raster as YYYYMMDD.tif.
func (w *Workspace) WriteIntermediate(in domain.Input, r domain.Raster) (string, error) {
	path := w.rasterPath(in)
	if err := geotiff.WriteFile(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRaster decodes a raster written by this workspace.
func (w *Workspace) ReadRaster(path string) (domain.Raster, error) {
	return geotiff.ReadFile(path)
}

// Persist writes the clipped raster to a temporary name and renames it into
// place.
func (w *Workspace) Persist(in domain.Input, r domain.Raster) (string, error) {
	final := w.OutputPath(in)
	tmp := final + partialSuffix
	if err := geotiff.WriteFile(tmp, r); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: publish output: %w", domain.ErrIO, err)
	}
	return final, nil
}

// Cleanup removes every transient artifact for in. Missing files are fine.
func (w *Workspace) Cleanup(in domain.Input) error {
	var errs []error
	for _, p := range []string{w.rawPath(in), w.rasterPath(in), w.OutputPath(in) + partialSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: cleanup %s: %w", domain.ErrIO, in.Key(), errors.Join(errs...))
	}
	return nil
}
