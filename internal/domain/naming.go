package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	inputPrefix = "persiann_"
	inputSuffix = ".bin.gz"
	dateLayout  = "20060102"
)

// DateCode is the (year mod 100, day-of-year) key the upstream archive names
// its daily files by, e.g. 2020-01-01 -> "20001".
type DateCode struct {
	Year int // 0-99
	Day  int // 1-366
}

// NewDateCode derives the Date Code for the UTC calendar day of t.
func NewDateCode(t time.Time) DateCode {
	t = t.UTC()
	return DateCode{Year: t.Year() % 100, Day: t.YearDay()}
}

func (d DateCode) String() string {
	return fmt.Sprintf("%02d%03d", d.Year, d.Day)
}

// DateKey formats a date as YYYYMMDD, the on-disk key for all artifacts.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// InputName is the local name of a downloaded daily file.
func InputName(t time.Time) string {
	return inputPrefix + DateKey(t) + inputSuffix
}

// RawName is the transient decompressed grid.
func RawName(t time.Time) string {
	return DateKey(t) + ".bin"
}

// IntermediateRasterName is the transient full-globe raster.
func IntermediateRasterName(t time.Time) string {
	return DateKey(t) + ".tif"
}

// OutputName is the persisted clipped raster.
func OutputName(t time.Time) string {
	return inputPrefix + DateKey(t) + "_cdp.tif"
}

// ParseInputName extracts the calendar date from an input file name.
// It returns false for anything not shaped like persiann_YYYYMMDD.bin.gz.
func ParseInputName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, inputPrefix) || !strings.HasSuffix(name, inputSuffix) {
		return time.Time{}, false
	}
	key := strings.TrimSuffix(strings.TrimPrefix(name, inputPrefix), inputSuffix)
	if len(key) != len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
