//go:build perf || perf_large

package perf

import (
	"fmt"
	"testing"

	"github.com/signalsfoundry/regionbench/core"
	"github.com/signalsfoundry/regionbench/internal/bench"
	"github.com/signalsfoundry/regionbench/internal/regions"
	"github.com/signalsfoundry/regionbench/kb"
)

type perfConfig struct {
	Regions   int
	DataWidth int
	Codec     string
}

// newChain builds cfg.Regions SerializationTestRegions linked head to tail.
func newChain(b *testing.B, cfg perfConfig) *core.Network {
	b.Helper()
	reg := kb.NewRegistry()
	if err := reg.Register(regions.SerializationTestType()); err != nil {
		b.Fatalf("Register: %v", err)
	}
	b.Cleanup(func() { _ = reg.Unregister(regions.SerializationTestRegionType) })

	net := core.NewNetwork(reg)
	for i := 0; i < cfg.Regions; i++ {
		name := fmt.Sprintf("region-%d", i)
		params := fmt.Sprintf(`{"dataWidth": %d, "randomSeed": %d}`, cfg.DataWidth, i+1)
		if _, err := net.AddRegion(name, regions.SerializationTestRegionType, params); err != nil {
			b.Fatalf("AddRegion(%s): %v", name, err)
		}
		if i == 0 {
			continue
		}
		prev := fmt.Sprintf("region-%d", i-1)
		if err := net.Link(prev, regions.OutputName, name, regions.InputName); err != nil {
			b.Fatalf("Link(%s -> %s): %v", prev, name, err)
		}
	}
	return net
}

func benchmarkSave(b *testing.B, cfg perfConfig) {
	net := newChain(b, cfg)
	b.ReportAllocs()

	var buf []byte
	var err error
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err = net.Save(buf[:0])
		if err != nil {
			b.Fatalf("Save: %v", err)
		}
	}
	b.SetBytes(int64(len(buf)))
}

func benchmarkLoad(b *testing.B, cfg perfConfig) {
	net := newChain(b, cfg)
	data, err := net.Save(nil)
	if err != nil {
		b.Fatalf("Save: %v", err)
	}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := net.Load(data); err != nil {
			b.Fatalf("Load: %v", err)
		}
	}
}

func benchmarkPayload(b *testing.B, cfg perfConfig) {
	net := newChain(b, cfg)
	data, err := net.Save(nil)
	if err != nil {
		b.Fatalf("Save: %v", err)
	}
	codec, err := bench.NewCodec(cfg.Codec)
	if err != nil {
		b.Fatalf("NewCodec: %v", err)
	}
	b.Cleanup(func() { _ = codec.Close() })
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wire, err := codec.Encode(data)
		if err != nil {
			b.Fatalf("Encode: %v", err)
		}
		if _, err := codec.Decode(wire); err != nil {
			b.Fatalf("Decode: %v", err)
		}
	}
}
