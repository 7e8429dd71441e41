package grid

import "runtime"

// Config holds extractor settings.
type Config struct {
	SkipTop    int
	SkipBottom int
	SkipLeft   int
	SkipRight  int
	Workers    int
	Sink       Sink

	// SkipDegenerate drops cells whose trace has no mean intensity instead
	// of failing Speckles.
	SkipDegenerate bool
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig keeps every block, uses one worker per CPU and has no sink.
func DefaultConfig() Config {
	return Config{Workers: runtime.GOMAXPROCS(0)}
}

// WithSkipRows drops the given number of block rows at the top and bottom.
func WithSkipRows(top, bottom int) Option {
	return func(cfg *Config) {
		if top >= 0 && bottom >= 0 {
			cfg.SkipTop, cfg.SkipBottom = top, bottom
		}
	}
}

// WithSkipColumns drops the given number of block columns at the left and right.
func WithSkipColumns(left, right int) Option {
	return func(cfg *Config) {
		if left >= 0 && right >= 0 {
			cfg.SkipLeft, cfg.SkipRight = left, right
		}
	}
}

// WithWorkers bounds the goroutines used by Extractor.Speckles.
func WithWorkers(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Workers = n
		}
	}
}

// WithSkipDegenerate makes Speckles drop dark cells, see Extractor.Skipped.
func WithSkipDegenerate(skip bool) Option {
	return func(cfg *Config) {
		cfg.SkipDegenerate = skip
	}
}

// WithSink streams every frame's block means to s.
func WithSink(s Sink) Option {
	return func(cfg *Config) {
		cfg.Sink = s
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
