// Package gridconfig holds the engine's configuration options, grouped by
// concern the way the teacher's pkg/config.Config groups server/database/
// cache/monitor settings.
package gridconfig

import "time"

// Options is the façade's top-level configuration record (spec §6,
// "Configuration options (enumerated)").
type Options struct {
	Store       StoreOptions       `json:"store"`
	Validation  ValidationOptions  `json:"validation"`
	Query       QueryOptions       `json:"query"`
	IO          IOOptions          `json:"io"`
	Concurrency ConcurrencyOptions `json:"concurrency"`
	Features    FeatureOptions     `json:"features"`
	Mode        OperationModeOpt   `json:"mode"`
}

// OperationModeOpt mirrors model.OperationMode without importing the model
// package, keeping gridconfig dependency-free for callers that only need
// to read/serialize options.
type OperationModeOpt string

const (
	ModeInteractive OperationModeOpt = "Interactive"
	ModeHeadless    OperationModeOpt = "Headless"
)

// StoreOptions bounds column widths and selection size.
type StoreOptions struct {
	MinColumnWidth  float64 `json:"min_column_width"`
	MaxColumnWidth  float64 `json:"max_column_width"`
	MaxSelectionSize int    `json:"max_selection_size"`
}

// ValidationOptions controls rule evaluation and batch scheduling.
type ValidationOptions struct {
	BatchSize                  int           `json:"batch_size"`
	EnableParallelProcessing   bool          `json:"enable_parallel_processing"`
	DegreeOfParallelism        int           `json:"degree_of_parallelism"`
	ParallelProcessingThreshold int          `json:"parallel_processing_threshold"`
	EnableRealTimeValidation   bool          `json:"enable_real_time_validation"`
	EnableBatchValidation      bool          `json:"enable_batch_validation"`
	EnableValidationAlertsColumn bool        `json:"enable_validation_alerts_column"`
	DefaultRuleTimeout         time.Duration `json:"default_rule_timeout"`
	RealTimeChangeThreshold    int           `json:"realtime_change_threshold"` // small-change threshold for scheduling
}

// QueryOptions controls the sort/filter/search pipeline and its cache.
type QueryOptions struct {
	ResultCacheSize int           `json:"result_cache_size"`
	ResultCacheTTL  time.Duration `json:"result_cache_ttl"`
	StreamBatchSize int           `json:"stream_batch_size"`
}

// IOOptions controls import/export batching.
type IOOptions struct {
	BatchSize       int  `json:"batch_size"`
	ExportBatchSize int  `json:"export_batch_size"`
	ExpandSchema    bool `json:"expand_schema"`
}

// ConcurrencyOptions is carried in Options but not read by the engine: the
// worker pool used for parallel validation batches is sized by
// ValidationOptions.DegreeOfParallelism.
type ConcurrencyOptions struct {
	DegreeOfParallelism int           `json:"degree_of_parallelism"`
	QueueSize           int           `json:"queue_size"`
	IdleTimeout         time.Duration `json:"idle_timeout"`
}

// FeatureOptions gates operations by feature tag.
type FeatureOptions struct {
	Enabled map[string]bool `json:"enabled_features"`
}

// IsEnabled reports whether a given feature tag is gated on. A tag absent
// from the map is treated as enabled — the map only needs to list
// explicitly-disabled features, matching a deny-by-exception default that
// keeps a freshly constructed Options usable without enumerating every tag.
func (f FeatureOptions) IsEnabled(tag string) bool {
	if f.Enabled == nil {
		return true
	}
	v, ok := f.Enabled[tag]
	if !ok {
		return true
	}
	return v
}

// Standard feature tags gating the façade's operation groups.
const (
	FeatureRows       = "rows"
	FeatureColumns     = "columns"
	FeatureIO         = "io"
	FeatureValidation = "validation"
	FeatureQuery      = "query"
	FeatureSelection  = "selection"
	FeatureEdit       = "edit"
)

// Default returns an Options populated with the defaults named in spec §6.
func Default() Options {
	return Options{
		Mode: ModeHeadless,
		Store: StoreOptions{
			MinColumnWidth:   40,
			MaxColumnWidth:   800,
			MaxSelectionSize: 100_000,
		},
		Validation: ValidationOptions{
			BatchSize:                   5_000,
			EnableParallelProcessing:    true,
			DegreeOfParallelism:         4,
			ParallelProcessingThreshold: 20_000,
			EnableRealTimeValidation:    true,
			EnableBatchValidation:       true,
			EnableValidationAlertsColumn: true,
			DefaultRuleTimeout:          200 * time.Millisecond,
			RealTimeChangeThreshold:     1,
		},
		Query: QueryOptions{
			ResultCacheSize: 256,
			ResultCacheTTL:  5 * time.Minute,
			StreamBatchSize: 2_000,
		},
		IO: IOOptions{
			BatchSize:       10_000,
			ExportBatchSize: 10_000,
			ExpandSchema:    false,
		},
		Concurrency: ConcurrencyOptions{
			DegreeOfParallelism: 4,
			QueueSize:           256,
			IdleTimeout:         30 * time.Second,
		},
		Features: FeatureOptions{Enabled: map[string]bool{}},
	}
}
