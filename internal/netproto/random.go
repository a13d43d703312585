package netproto

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Random is the persisted state of a core.Random.
//
//	message Random { uint64 seed = 1; RandomImpl impl = 2; }
//	message RandomImpl { repeated int64 state = 1 [packed = true]; int64 rptr = 2; int64 fptr = 3; }
type Random struct {
	Seed uint64
	Impl *RandomImpl
}

type RandomImpl struct {
	State []int64
	Rptr  int64
	Fptr  int64
}

// SerializationTestRegion is the region_impl payload of the region type the
// benchmark exercises.
//
//	message SerializationTestRegion { uint32 data_width = 1; Random random = 2; }
type SerializationTestRegion struct {
	DataWidth uint32
	Random    *Random
}

func (m *Random) Reset() {
	impl := m.Impl
	*m = Random{}
	if impl != nil {
		impl.Reset()
		m.Impl = impl
	}
}

func (m *Random) SizeVT() (n int) {
	if m == nil {
		return 0
	}
	n += sizeVarint(m.Seed)
	if m.Impl != nil {
		n += sizeEmbedded(m.Impl.SizeVT())
	}
	return n
}

func (m *Random) MarshalToSizedBufferVT(dAtA []byte) (int, error) {
	i := len(dAtA)
	if m.Impl != nil {
		size, err := m.Impl.MarshalToSizedBufferVT(dAtA[:i])
		if err != nil {
			return 0, err
		}
		i = encodeEmbedded(dAtA, i, tag(2, protowire.BytesType), size)
	}
	i = encodeVarintField(dAtA, i, tag(1, protowire.VarintType), m.Seed)
	return len(dAtA) - i, nil
}

func (m *Random) UnmarshalVT(b []byte) error {
	m.Reset()
	for len(b) > 0 {
		num, typ, n, err := consumeTag(b, "Random")
		if err != nil {
			return err
		}
		b = b[n:]
		switch num {
		case 1:
			m.Seed, n, err = consumeVarint(b, typ, "Random.seed")
		case 2:
			var v []byte
			v, n, err = consumeBytes(b, typ, "Random.impl")
			if err == nil {
				if m.Impl == nil {
					m.Impl = &RandomImpl{}
				}
				err = m.Impl.UnmarshalVT(v)
			}
		default:
			n, err = skipField(b, num, typ, "Random")
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (m *RandomImpl) Reset() {
	*m = RandomImpl{State: m.State[:0]}
}

func (m *RandomImpl) SizeVT() (n int) {
	if m == nil {
		return 0
	}
	n += sizePacked(m.State)
	n += sizeVarint(uint64(m.Rptr))
	n += sizeVarint(uint64(m.Fptr))
	return n
}

func (m *RandomImpl) MarshalToSizedBufferVT(dAtA []byte) (int, error) {
	i := len(dAtA)
	i = encodeVarintField(dAtA, i, tag(3, protowire.VarintType), uint64(m.Fptr))
	i = encodeVarintField(dAtA, i, tag(2, protowire.VarintType), uint64(m.Rptr))
	i = encodePacked(dAtA, i, tag(1, protowire.BytesType), m.State)
	return len(dAtA) - i, nil
}

func (m *RandomImpl) UnmarshalVT(b []byte) error {
	m.Reset()
	for len(b) > 0 {
		num, typ, n, err := consumeTag(b, "RandomImpl")
		if err != nil {
			return err
		}
		b = b[n:]
		var v uint64
		switch num {
		case 1:
			m.State, n, err = consumeRepeated(m.State, b, typ, "RandomImpl.state")
		case 2:
			v, n, err = consumeVarint(b, typ, "RandomImpl.rptr")
			m.Rptr = int64(v)
		case 3:
			v, n, err = consumeVarint(b, typ, "RandomImpl.fptr")
			m.Fptr = int64(v)
		default:
			n, err = skipField(b, num, typ, "RandomImpl")
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (m *SerializationTestRegion) Reset() {
	rnd := m.Random
	*m = SerializationTestRegion{}
	if rnd != nil {
		rnd.Reset()
		m.Random = rnd
	}
}

func (m *SerializationTestRegion) SizeVT() (n int) {
	if m == nil {
		return 0
	}
	n += sizeVarint(uint64(m.DataWidth))
	if m.Random != nil {
		n += sizeEmbedded(m.Random.SizeVT())
	}
	return n
}

// AppendVT appends the encoding of m to dst.
func (m *SerializationTestRegion) AppendVT(dst []byte) ([]byte, error) {
	size := m.SizeVT()
	off := len(dst)
	dst = append(dst, make([]byte, size)...)
	n, err := m.MarshalToSizedBufferVT(dst[off:])
	if err != nil {
		return dst[:off], err
	}
	if err := checkSize("SerializationTestRegion", n, size); err != nil {
		return dst[:off], err
	}
	return dst, nil
}

func (m *SerializationTestRegion) MarshalToSizedBufferVT(dAtA []byte) (int, error) {
	i := len(dAtA)
	if m.Random != nil {
		size, err := m.Random.MarshalToSizedBufferVT(dAtA[:i])
		if err != nil {
			return 0, err
		}
		i = encodeEmbedded(dAtA, i, tag(2, protowire.BytesType), size)
	}
	i = encodeVarintField(dAtA, i, tag(1, protowire.VarintType), uint64(m.DataWidth))
	return len(dAtA) - i, nil
}

func (m *SerializationTestRegion) UnmarshalVT(b []byte) error {
	m.Reset()
	for len(b) > 0 {
		num, typ, n, err := consumeTag(b, "SerializationTestRegion")
		if err != nil {
			return err
		}
		b = b[n:]
		switch num {
		case 1:
			var v uint64
			v, n, err = consumeVarint(b, typ, "SerializationTestRegion.data_width")
			m.DataWidth = uint32(v)
		case 2:
			var v []byte
			v, n, err = consumeBytes(b, typ, "SerializationTestRegion.random")
			if err == nil {
				if m.Random == nil {
					m.Random = &Random{}
				}
				err = m.Random.UnmarshalVT(v)
			}
		default:
			n, err = skipField(b, num, typ, "SerializationTestRegion")
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
