package core

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/regionbench/internal/netproto"
)

func TestRandomDeterministic(t *testing.T) {
	a := NewRandom(99)
	b := NewRandom(99)
	for i := 0; i < 1000; i++ {
		if x, y := a.GetUInt32(), b.GetUInt32(); x != y {
			t.Fatalf("draw %d: %d != %d for the same seed", i, x, y)
		}
	}
	if a.Seed() != 99 {
		t.Fatalf("Seed() = %d, want 99", a.Seed())
	}
}

func TestRandomSeedsDiverge(t *testing.T) {
	a := NewRandom(1)
	b := NewRandom(2)
	same := 0
	for i := 0; i < 100; i++ {
		if a.GetUInt32() == b.GetUInt32() {
			same++
		}
	}
	if same > 5 {
		t.Fatalf("seeds 1 and 2 agreed on %d of 100 draws", same)
	}
}

func TestRandomZeroSeedUsesEntropy(t *testing.T) {
	if r := NewRandom(0); r.Seed() == 0 {
		t.Fatalf("seed 0 should be replaced with a non-zero entropy seed")
	}
}

func TestRandomRanges(t *testing.T) {
	r := NewRandom(7)
	for i := 0; i < 10000; i++ {
		if v := r.GetUInt32(); v > randomMax31 {
			t.Fatalf("GetUInt32 = %d exceeds 31 bits", v)
		}
		if v := r.GetUInt32n(10); v >= 10 {
			t.Fatalf("GetUInt32n(10) = %d", v)
		}
		if v := r.GetUInt32n(0xf0000000); v >= 0xf0000000 {
			t.Fatalf("GetUInt32n(0xf0000000) = %d", v)
		}
		if f := r.GetReal64(); f < 0 || f >= 1 {
			t.Fatalf("GetReal64 = %v outside [0, 1)", f)
		}
	}
}

func TestRandomGetUInt32nZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for max 0")
		}
	}()
	NewRandom(3).GetUInt32n(0)
}

func TestRandomWriteReadContinuesSequence(t *testing.T) {
	orig := NewRandom(42)
	for i := 0; i < 17; i++ {
		orig.GetUInt32()
	}

	var msg netproto.Random
	orig.Write(&msg)
	if len(msg.Impl.State) != randomStateSize {
		t.Fatalf("wrote %d state words, want %d", len(msg.Impl.State), randomStateSize)
	}

	var restored Random
	if err := restored.Read(&msg); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if restored.Seed() != 42 {
		t.Fatalf("restored seed = %d", restored.Seed())
	}
	for i := 0; i < 500; i++ {
		if x, y := orig.GetUInt32(), restored.GetUInt32(); x != y {
			t.Fatalf("draw %d after restore: %d != %d", i, x, y)
		}
	}

	// Writing again into the same message reuses its state slice.
	before := &msg.Impl.State[0]
	orig.Write(&msg)
	if &msg.Impl.State[0] != before {
		t.Fatalf("Write reallocated the state buffer")
	}
}

func TestRandomReadRejectsBadState(t *testing.T) {
	valid := func() *netproto.Random {
		var msg netproto.Random
		NewRandom(5).Write(&msg)
		return &msg
	}

	cases := []struct {
		name   string
		mutate func(*netproto.Random) *netproto.Random
	}{
		{"nil message", func(*netproto.Random) *netproto.Random { return nil }},
		{"no impl", func(m *netproto.Random) *netproto.Random { m.Impl = nil; return m }},
		{"short state", func(m *netproto.Random) *netproto.Random { m.Impl.State = m.Impl.State[:30]; return m }},
		{"rptr out of range", func(m *netproto.Random) *netproto.Random { m.Impl.Rptr = 31; return m }},
		{"fptr negative", func(m *netproto.Random) *netproto.Random { m.Impl.Fptr = -1; return m }},
		{"bad separation", func(m *netproto.Random) *netproto.Random { m.Impl.Rptr, m.Impl.Fptr = 0, 4; return m }},
		{"word overflow", func(m *netproto.Random) *netproto.Random { m.Impl.State[3] = 1 << 33; return m }},
		{"negative word", func(m *netproto.Random) *netproto.Random { m.Impl.State[0] = -1; return m }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRandom(11)
			want := r.GetUInt32()
			r = NewRandom(11)

			if err := r.Read(tc.mutate(valid())); !errors.Is(err, ErrRandomState) {
				t.Fatalf("Read error = %v, want ErrRandomState", err)
			}
			if got := r.GetUInt32(); got != want || r.Seed() != 11 {
				t.Fatalf("failed Read changed the generator")
			}
		})
	}
}

func TestRandomReadAcceptsWrappedPointers(t *testing.T) {
	msg := netproto.Random{Seed: 1, Impl: &netproto.RandomImpl{State: make([]int64, randomStateSize), Rptr: 29, Fptr: 1}}
	msg.Impl.State[0] = 1
	var r Random
	if err := r.Read(&msg); err != nil {
		t.Fatalf("Read with wrapped pointers: %v", err)
	}
	r.GetUInt32()
}
