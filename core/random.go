package core

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/signalsfoundry/regionbench/internal/netproto"
)

const (
	randomStateSize = 31
	randomSep       = 3
	randomMax31     = 0x7fffffff
	// Draws discarded after seeding so the state loses its linear start.
	randomWarmup = 10 * randomStateSize
)

var ErrRandomState = errors.New("invalid random state")

// Random is a seeded additive-feedback generator (the classic BSD random(3)
// TYPE_3 layout) whose full state can be written to and read from the wire.
// It is not safe for concurrent use.
type Random struct {
	seed  uint64
	state [randomStateSize]uint32
	rptr  int
	fptr  int
}

// NewRandom returns a generator for seed. Seed 0 draws a seed from the OS
// entropy source.
func NewRandom(seed uint64) *Random {
	if seed == 0 {
		seed = entropySeed()
	}
	r := &Random{}
	r.reseed(seed)
	return r
}

func (r *Random) reseed(seed uint64) {
	r.seed = seed
	r.state[0] = uint32(seed)
	for i := 1; i < randomStateSize; i++ {
		r.state[i] = minStdRand(r.state[i-1])
	}
	r.fptr = randomSep
	r.rptr = 0
	for i := 0; i < randomWarmup; i++ {
		r.next()
	}
}

// minStdRand is the Park-Miller minimal standard step, using Schrage's
// decomposition so the product never overflows 32 bits.
func minStdRand(x uint32) uint32 {
	if x == 0 {
		x = 123459876
	}
	hi := int64(x / 127773)
	lo := int64(x % 127773)
	v := 16807*lo - 2836*hi
	if v < 0 {
		v += randomMax31
	}
	return uint32(v)
}

func (r *Random) next() uint32 {
	r.state[r.fptr] += r.state[r.rptr]
	v := (r.state[r.fptr] >> 1) & randomMax31
	r.fptr++
	if r.fptr >= randomStateSize {
		r.fptr = 0
		r.rptr++
	} else {
		r.rptr++
		if r.rptr >= randomStateSize {
			r.rptr = 0
		}
	}
	return v
}

// Seed returns the seed the generator was created with.
func (r *Random) Seed() uint64 { return r.seed }

// GetUInt32 returns a uniformly distributed value in [0, 2^31).
func (r *Random) GetUInt32() uint32 { return r.next() }

// GetUInt32n returns a uniformly distributed value in [0, max). It panics if
// max is 0.
func (r *Random) GetUInt32n(max uint32) uint32 {
	if max == 0 {
		panic("core: GetUInt32n called with max 0")
	}
	if max > randomMax31 {
		// Two draws cover the full 32-bit range.
		for {
			v := r.next()<<1 | r.next()&1
			if v < max {
				return v
			}
		}
	}
	limit := randomMax31 - (randomMax31 % max)
	for {
		v := r.next()
		if v < limit {
			return v % max
		}
	}
}

// GetReal64 returns a value in [0, 1) with 53 bits of precision.
func (r *Random) GetReal64() float64 {
	hi := uint64(r.next())
	lo := uint64(r.next())
	bits := (hi<<31 | lo) >> 9
	return float64(bits) / (1 << 53)
}

// Write stores the generator state in msg, reusing its buffers.
func (r *Random) Write(msg *netproto.Random) {
	msg.Seed = r.seed
	if msg.Impl == nil {
		msg.Impl = &netproto.RandomImpl{}
	}
	state := msg.Impl.State[:0]
	for _, v := range r.state {
		state = append(state, int64(v))
	}
	msg.Impl.State = state
	msg.Impl.Rptr = int64(r.rptr)
	msg.Impl.Fptr = int64(r.fptr)
}

// Read replaces the generator state with the one stored in msg. The state is
// validated before anything is changed.
func (r *Random) Read(msg *netproto.Random) error {
	if msg == nil || msg.Impl == nil {
		return fmt.Errorf("%w: missing implementation state", ErrRandomState)
	}
	impl := msg.Impl
	if len(impl.State) != randomStateSize {
		return fmt.Errorf("%w: %d state words, want %d", ErrRandomState, len(impl.State), randomStateSize)
	}
	if impl.Rptr < 0 || impl.Rptr >= randomStateSize || impl.Fptr < 0 || impl.Fptr >= randomStateSize {
		return fmt.Errorf("%w: pointers (%d, %d) out of range", ErrRandomState, impl.Rptr, impl.Fptr)
	}
	if (impl.Fptr-impl.Rptr+randomStateSize)%randomStateSize != randomSep {
		return fmt.Errorf("%w: pointers (%d, %d) are not %d apart", ErrRandomState, impl.Rptr, impl.Fptr, randomSep)
	}
	var state [randomStateSize]uint32
	for i, v := range impl.State {
		if v < 0 || v > 0xffffffff {
			return fmt.Errorf("%w: state word %d = %d overflows 32 bits", ErrRandomState, i, v)
		}
		state[i] = uint32(v)
	}

	r.seed = msg.Seed
	r.state = state
	r.rptr = int(impl.Rptr)
	r.fptr = int(impl.Fptr)
	return nil
}

func entropySeed() uint64 {
	var b [8]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic(fmt.Sprintf("core: read entropy: %v", err))
		}
		if s := binary.LittleEndian.Uint64(b[:]); s != 0 {
			return s
		}
	}
}
