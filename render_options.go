package mdstream

import "log/slog"

// Option configures parsing and rendering behavior.
type Option func(*config)

type config struct {
	osc8        bool
	eagerText   bool
	normalize   bool
	color       bool
	strict      bool
	logger      *slog.Logger
	frontMatter func(FrontMatter)
}

func newConfig(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithOSC8 enables or disables OSC 8 hyperlinks in terminal output.
func WithOSC8(enabled bool) Option {
	return func(cfg *config) {
		cfg.osc8 = enabled
	}
}

// WithEagerText flushes buffered text to the renderer at the end of every
// chunk instead of waiting for the next structural event. Live displays want
// this; the event sequence then depends on chunk boundaries (text may arrive
// split, and a raw URL's href may follow part of its text).
func WithEagerText(enabled bool) Option {
	return func(cfg *config) {
		cfg.eagerText = enabled
	}
}

// WithNormalize applies Unicode NFC normalization to streamed input.
func WithNormalize(enabled bool) Option {
	return func(cfg *config) {
		cfg.normalize = enabled
	}
}

// WithStrictInput makes Parse fail with ErrInvalidUTF8 or ErrBinaryInput
// instead of skipping bad input.
func WithStrictInput(enabled bool) Option {
	return func(cfg *config) {
		cfg.strict = enabled
	}
}

// WithColor enables ANSI coloring in the event log renderer.
func WithColor(enabled bool) Option {
	return func(cfg *config) {
		cfg.color = enabled
	}
}

// WithLogger traces parser decisions at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithFrontMatter registers a callback for front matter found at the start of
// a stream. The block itself is never passed to the parser.
func WithFrontMatter(fn func(FrontMatter)) Option {
	return func(cfg *config) {
		cfg.frontMatter = fn
	}
}
