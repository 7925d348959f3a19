package pssh

import (
	"io"
	"log/slog"

	"github.com/orajowo/pssh/widevine"
)

// Codec encodes and decodes PSSH boxes for the systems in its registry.
// It holds no mutable state after New and is safe for concurrent use.
type Codec struct {
	registry *Registry
	widevine *widevine.Codec
	log      *slog.Logger
}

type options struct {
	registry *Registry
	schema   *widevine.Schema
	log      *slog.Logger
}

type Option func(*options)

// WithRegistry replaces the default system registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithSchema uses s instead of the embedded Widevine header schema.
func WithSchema(s *widevine.Schema) Option {
	return func(o *options) { o.schema = s }
}

// WithLogger sets the logger for debug output. Logging is off by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func New(opts ...Option) (*Codec, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.schema == nil {
		s, err := widevine.DefaultSchema()
		if err != nil {
			return nil, err
		}
		o.schema = s
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Codec{
		registry: o.registry,
		widevine: widevine.NewCodec(o.schema),
		log:      o.log,
	}, nil
}

func (c *Codec) Registry() *Registry {
	return c.registry
}

// Widevine returns the inner header codec used for Widevine boxes.
func (c *Codec) Widevine() *widevine.Codec {
	return c.widevine
}
