package domain

import "time"

// State is a stage of one daily input's journey through the pipeline.
type State string

const (
	StatePending       State = "pending"
	StateDecompressed  State = "decompressed"
	StateDecoded       State = "decoded"
	StateNormalized    State = "normalized"
	StateGeoreferenced State = "georeferenced"
	StateClipped       State = "clipped"
	StatePersisted     State = "persisted"
	StateFailed        State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateFailed
}

// Input is one discovered daily file.
type Input struct {
	Date time.Time
	Path string
}

// DateCode returns the upstream key for the input's date.
func (in Input) DateCode() DateCode { return NewDateCode(in.Date) }

// Key returns the YYYYMMDD artifact key.
func (in Input) Key() string { return DateKey(in.Date) }

// ProductEvent announces a newly persisted clipped raster.
type ProductEvent struct {
	Date        string    `json:"date"`
	DateCode    string    `json:"date_code"`
	Path        string    `json:"path"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Bounds      Extent    `json:"bounds"`
	EPSG        int       `json:"epsg"`
	NoData      float32   `json:"nodata"`
	RunID       string    `json:"run_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// NewProductEvent describes the clipped raster r persisted at path.
func NewProductEvent(in Input, r Raster, path, runID string) ProductEvent {
	return ProductEvent{
		Date:        in.Key(),
		DateCode:    in.DateCode().String(),
		Path:        path,
		Width:       r.Width(),
		Height:      r.Height(),
		Bounds:      r.Bounds(),
		EPSG:        r.EPSG,
		NoData:      r.NoData,
		RunID:       runID,
		ProcessedAt: Now(),
	}
}
