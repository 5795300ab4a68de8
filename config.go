package asmjit

import "runtime"

const (
	minBlockSize = 64 * 1024
	maxBlockSize = 256 * 1024 * 1024

	minGranularity = 64
	maxGranularity = 256

	defaultGranularity = 64
)

// Config holds the allocator's immutable-after-construction options (spec
// §3, §6). Build one with NewConfig and zero or more Options, then pass it
// to New. Grounded on the teacher's RuntimeConfig/engineLessConfig builder
// (config.go): every With* method clones rather than mutates, so a Config
// can be reused as a template for several allocators.
type Config struct {
	useMultiplePools      bool
	useDualMapping        bool
	fillUnusedMemory      bool
	immediateRelease      bool
	disableInitialPadding bool

	blockSize   uint32
	granularity uint32
	fillPattern uint32
}

// NewConfig returns a Config with every option at its spec-defined default:
// a single pool, single mapping, no fill-on-free, empty blocks retained,
// initial padding enabled, granularity 64, and an architecture-chosen trap
// fill pattern. blockSize defaults to the page granularity and is filled in
// by New once the platform collaborator is queried.
func NewConfig() *Config {
	return &Config{
		granularity: defaultGranularity,
		fillPattern: defaultFillPattern(),
	}
}

func (c *Config) clone() *Config {
	cp := *c
	return &cp
}

// Option mutates a cloned Config. Grounded on the teacher's functional
// RuntimeConfig options.
type Option func(*Config)

func (c *Config) With(opts ...Option) *Config {
	cp := c.clone()
	for _, opt := range opts {
		opt(cp)
	}
	return cp
}

// WithMultiplePools enables three pools with granularities g, 2g, 4g
// instead of one (spec §3: UseMultiplePools).
func WithMultiplePools(enabled bool) Option {
	return func(c *Config) { c.useMultiplePools = enabled }
}

// WithDualMapping forces every new block to be mapped as a distinct RX/RW
// pair instead of one RWX mapping (spec §3: UseDualMapping).
func WithDualMapping(enabled bool) Option {
	return func(c *Config) { c.useDualMapping = enabled }
}

// WithFillUnusedMemory overwrites freed and newly mapped memory with the
// configured fill pattern (spec §3: FillUnusedMemory).
func WithFillUnusedMemory(enabled bool) Option {
	return func(c *Config) { c.fillUnusedMemory = enabled }
}

// WithImmediateRelease makes the allocator never retain an empty block
// (spec §3: ImmediateRelease).
func WithImmediateRelease(enabled bool) Option {
	return func(c *Config) { c.immediateRelease = enabled }
}

// WithDisableInitialPadding stops the allocator from reserving slot 0 of
// every block (spec §3: DisableInitialPadding).
func WithDisableInitialPadding(enabled bool) Option {
	return func(c *Config) { c.disableInitialPadding = enabled }
}

// WithBlockSize sets the size of each newly mapped block. Values outside
// [64KiB, 256MiB] or not a power of two are replaced with the platform's
// page granularity at construction time (spec §6).
func WithBlockSize(size uint32) Option {
	return func(c *Config) { c.blockSize = size }
}

// WithGranularity sets the pool's base slot size. Values outside [64, 256]
// or not a power of two are replaced with 64 at construction time (spec
// §6).
func WithGranularity(granularity uint32) Option {
	return func(c *Config) { c.granularity = granularity }
}

// WithCustomFillPattern overrides the default trap fill pattern. Has no
// effect unless combined with WithFillUnusedMemory (spec §6).
func WithCustomFillPattern(pattern uint32) Option {
	return func(c *Config) { c.fillPattern = pattern }
}

// defaultFillPattern picks an architecture trap instruction encoded as a
// repeating 32-bit word, so a fill sweep that is later executed by mistake
// traps immediately rather than running arbitrary stale bytes (spec §3:
// "default is an architecture-chosen trap pattern such as repeated 0xCC on
// x86"). Mirrors the original implementation exactly (SPEC_FULL.md §12):
// the trap pattern is x86-only, and every other architecture falls back to
// 0 rather than inventing a pattern the original never defined.
func defaultFillPattern() uint32 {
	switch runtime.GOARCH {
	case "amd64", "386":
		return 0xCCCCCCCC // four INT3 opcodes back to back
	default:
		return 0
	}
}

func isPowerOfTwo(v uint32) bool { return v != 0 && v&(v-1) == 0 }

// normalize applies the §6 clamp/replace rules once the platform's page
// granularity is known, returning a new Config (the receiver is never
// mutated).
func (c *Config) normalize(pageGranularity uint32) *Config {
	cp := c.clone()

	if cp.blockSize == 0 {
		cp.blockSize = pageGranularity
	}
	if cp.blockSize < minBlockSize || cp.blockSize > maxBlockSize || !isPowerOfTwo(cp.blockSize) {
		cp.blockSize = pageGranularity
	}

	if cp.granularity < minGranularity || cp.granularity > maxGranularity || !isPowerOfTwo(cp.granularity) {
		cp.granularity = defaultGranularity
	}

	return cp
}
