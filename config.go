package exchange

import "time"

// Config is an immutable set of server options, per spec.md §4.10. Build
// one with NewConfigBuilder and its fluent With* setters, grounded on
// shockwave/pkg/shockwave/server.Config + DefaultConfig's table style and
// on rivaas-dev-rivaas's functional-option pattern for the builder shape.
type Config struct {
	MaxRequestHeadSize         int
	MaxRequestBodyBufferSize   int64
	MaxRequestTrailersSize     int
	MaxErrorResponses          int
	MinHTTPVersion             Version
	MaxHTTPVersion             Version
	DiscardRejectedInformational bool
	ImmediatelyContinueExpect100 bool
	TimeoutFileLock            time.Duration
	TimeoutIdleConnection      time.Duration
	ImplementMissingOptions    bool
}

// DefaultConfig returns the default configuration, matching spec.md
// §4.10's table exactly.
func DefaultConfig() Config {
	return Config{
		MaxRequestHeadSize:           8000,
		MaxRequestBodyBufferSize:     20 * 1024 * 1024,
		MaxRequestTrailersSize:       8000,
		MaxErrorResponses:            3,
		MinHTTPVersion:               Version{1, 0},
		MaxHTTPVersion:               Version{1, 1},
		DiscardRejectedInformational: true,
		ImmediatelyContinueExpect100: false,
		TimeoutFileLock:              3 * time.Second,
		TimeoutIdleConnection:        3 * time.Minute,
		ImplementMissingOptions:      true,
	}
}

// Builder produces Config values. Each With* setter returns a new Builder;
// the receiver is never mutated, so earlier builders in a chain remain
// valid and independent — per spec.md §9's builder-immutability design
// note and the teacher's DefaultConfig-as-value-type convention.
type Builder struct {
	cfg Config
}

// NewConfigBuilder starts a Builder from DefaultConfig.
func NewConfigBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

func (b *Builder) clone() *Builder {
	c := *b
	return &c
}

func (b *Builder) WithMaxRequestHeadSize(n int) *Builder {
	c := b.clone()
	c.cfg.MaxRequestHeadSize = n
	return c
}

func (b *Builder) WithMaxRequestBodyBufferSize(n int64) *Builder {
	c := b.clone()
	c.cfg.MaxRequestBodyBufferSize = n
	return c
}

func (b *Builder) WithMaxRequestTrailersSize(n int) *Builder {
	c := b.clone()
	c.cfg.MaxRequestTrailersSize = n
	return c
}

func (b *Builder) WithMaxErrorResponses(n int) *Builder {
	c := b.clone()
	c.cfg.MaxErrorResponses = n
	return c
}

func (b *Builder) WithMinHTTPVersion(v Version) *Builder {
	c := b.clone()
	c.cfg.MinHTTPVersion = v
	return c
}

func (b *Builder) WithMaxHTTPVersion(v Version) *Builder {
	c := b.clone()
	c.cfg.MaxHTTPVersion = v
	return c
}

func (b *Builder) WithDiscardRejectedInformational(v bool) *Builder {
	c := b.clone()
	c.cfg.DiscardRejectedInformational = v
	return c
}

func (b *Builder) WithImmediatelyContinueExpect100(v bool) *Builder {
	c := b.clone()
	c.cfg.ImmediatelyContinueExpect100 = v
	return c
}

func (b *Builder) WithTimeoutFileLock(d time.Duration) *Builder {
	c := b.clone()
	c.cfg.TimeoutFileLock = d
	return c
}

func (b *Builder) WithTimeoutIdleConnection(d time.Duration) *Builder {
	c := b.clone()
	c.cfg.TimeoutIdleConnection = d
	return c
}

func (b *Builder) WithImplementMissingOptions(v bool) *Builder {
	c := b.clone()
	c.cfg.ImplementMissingOptions = v
	return c
}

// Build returns the immutable Config value accumulated so far.
func (b *Builder) Build() Config {
	return b.cfg
}
