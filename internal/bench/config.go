// Package bench measures how fast a network of regions can be written to and
// read back from its binary form.
package bench

import (
	"errors"
	"fmt"
	"io"
)

// Default workload: one SerializationTestRegion, 128 wide, seed 99, saved and
// loaded 100000 times each.
const (
	DefaultSerializationLoops   = 100000
	DefaultDeserializationLoops = 100000
	DefaultDataWidth            = 128
	DefaultRandomSeed           = 99

	// RegionName is the name of the single region in the default network.
	RegionName = "SerializationTestRegion"
)

var ErrInvalidConfig = errors.New("invalid bench config")

// Config describes one benchmark run.
type Config struct {
	SerializationLoops   int
	DeserializationLoops int

	// DataWidth and RandomSeed parameterise the default network. They are
	// ignored when Scenario is set.
	DataWidth  int
	RandomSeed uint64

	// Compression selects the payload codec: none, zstd or lz4.
	Compression string
	// Verify saves once more after the deserialization phase and checks the
	// bytes match the serialized network.
	Verify bool

	// Scenario optionally supplies a JSON network description instead of
	// the default single-region network.
	Scenario io.Reader
}

// DefaultConfig returns the standard workload.
func DefaultConfig() Config {
	return Config{
		SerializationLoops:   DefaultSerializationLoops,
		DeserializationLoops: DefaultDeserializationLoops,
		DataWidth:            DefaultDataWidth,
		RandomSeed:           DefaultRandomSeed,
		Compression:          CompressionNone,
		Verify:               true,
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.SerializationLoops <= 0 {
		return fmt.Errorf("%w: serialization loops must be positive, got %d", ErrInvalidConfig, c.SerializationLoops)
	}
	if c.DeserializationLoops <= 0 {
		return fmt.Errorf("%w: deserialization loops must be positive, got %d", ErrInvalidConfig, c.DeserializationLoops)
	}
	if c.Scenario == nil && c.DataWidth <= 0 {
		return fmt.Errorf("%w: data width must be positive, got %d", ErrInvalidConfig, c.DataWidth)
	}
	if _, ok := codecs[c.Compression]; !ok && c.Compression != "" {
		return fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, c.Compression)
	}
	return nil
}
