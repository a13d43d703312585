package netproto

import (
	"slices"

	"google.golang.org/protobuf/encoding/protowire"
)

// Network is the top-level persisted form of a core.Network.
//
//	message Network { repeated Region regions = 1; repeated Link links = 2; }
type Network struct {
	Regions []*Region
	Links   []*Link
}

// Region carries the engine-level attributes of a region plus the opaque
// bytes its implementation produced.
//
//	message Region {
//	  string name = 1; string node_type = 2;
//	  repeated uint32 dimensions = 3 [packed = true];
//	  repeated uint32 phases = 4 [packed = true];
//	  bytes region_impl = 5;
//	}
type Region struct {
	Name       string
	NodeType   string
	Dimensions []uint32
	Phases     []uint32
	RegionImpl []byte
}

// Link is a directed connection from a region output to a region input.
//
//	message Link { string src_region = 1; string src_output = 2; string dest_region = 3; string dest_input = 4; }
type Link struct {
	SrcRegion  string
	SrcOutput  string
	DestRegion string
	DestInput  string
}

// Reset clears m but keeps slice capacity for reuse.
func (m *Network) Reset() {
	clear(m.Regions)
	clear(m.Links)
	m.Regions = m.Regions[:0]
	m.Links = m.Links[:0]
}

func (m *Network) SizeVT() (n int) {
	if m == nil {
		return 0
	}
	for _, e := range m.Regions {
		n += sizeEmbedded(e.SizeVT())
	}
	for _, e := range m.Links {
		n += sizeEmbedded(e.SizeVT())
	}
	return n
}

func (m *Network) MarshalVT() ([]byte, error) {
	return m.AppendVT(nil)
}

// AppendVT appends the encoding of m to dst, growing it at most once.
func (m *Network) AppendVT(dst []byte) ([]byte, error) {
	if m == nil {
		return dst, nil
	}
	size := m.SizeVT()
	off := len(dst)
	dst = slices.Grow(dst, size)[:off+size]
	n, err := m.MarshalToSizedBufferVT(dst[off:])
	if err != nil {
		return dst[:off], err
	}
	if err := checkSize("Network", n, size); err != nil {
		return dst[:off], err
	}
	return dst, nil
}

func (m *Network) MarshalToSizedBufferVT(dAtA []byte) (int, error) {
	i := len(dAtA)
	for k := len(m.Links) - 1; k >= 0; k-- {
		size, err := m.Links[k].MarshalToSizedBufferVT(dAtA[:i])
		if err != nil {
			return 0, err
		}
		i = encodeEmbedded(dAtA, i, tag(2, protowire.BytesType), size)
	}
	for k := len(m.Regions) - 1; k >= 0; k-- {
		size, err := m.Regions[k].MarshalToSizedBufferVT(dAtA[:i])
		if err != nil {
			return 0, err
		}
		i = encodeEmbedded(dAtA, i, tag(1, protowire.BytesType), size)
	}
	return len(dAtA) - i, nil
}

func (m *Network) UnmarshalVT(b []byte) error {
	m.Reset()
	for len(b) > 0 {
		num, typ, n, err := consumeTag(b, "Network")
		if err != nil {
			return err
		}
		b = b[n:]
		switch num {
		case 1:
			v, n, err := consumeBytes(b, typ, "Network.regions")
			if err != nil {
				return err
			}
			r := &Region{}
			if err := r.UnmarshalVT(v); err != nil {
				return err
			}
			m.Regions = append(m.Regions, r)
			b = b[n:]
		case 2:
			v, n, err := consumeBytes(b, typ, "Network.links")
			if err != nil {
				return err
			}
			l := &Link{}
			if err := l.UnmarshalVT(v); err != nil {
				return err
			}
			m.Links = append(m.Links, l)
			b = b[n:]
		default:
			n, err := skipField(b, num, typ, "Network")
			if err != nil {
				return err
			}
			b = b[n:]
		}
	}
	return nil
}

func (m *Region) Reset() {
	*m = Region{
		Dimensions: m.Dimensions[:0],
		Phases:     m.Phases[:0],
		RegionImpl: m.RegionImpl[:0],
	}
}

func (m *Region) SizeVT() (n int) {
	if m == nil {
		return 0
	}
	n += sizeLen(len(m.Name))
	n += sizeLen(len(m.NodeType))
	n += sizePacked(m.Dimensions)
	n += sizePacked(m.Phases)
	n += sizeLen(len(m.RegionImpl))
	return n
}

func (m *Region) MarshalVT() ([]byte, error) {
	size := m.SizeVT()
	dAtA := make([]byte, size)
	n, err := m.MarshalToSizedBufferVT(dAtA)
	if err != nil {
		return nil, err
	}
	return dAtA[:n], nil
}

func (m *Region) MarshalToSizedBufferVT(dAtA []byte) (int, error) {
	i := len(dAtA)
	i = encodeBytes(dAtA, i, tag(5, protowire.BytesType), m.RegionImpl)
	i = encodePacked(dAtA, i, tag(4, protowire.BytesType), m.Phases)
	i = encodePacked(dAtA, i, tag(3, protowire.BytesType), m.Dimensions)
	i = encodeString(dAtA, i, tag(2, protowire.BytesType), m.NodeType)
	i = encodeString(dAtA, i, tag(1, protowire.BytesType), m.Name)
	return len(dAtA) - i, nil
}

func (m *Region) UnmarshalVT(b []byte) error {
	m.Reset()
	for len(b) > 0 {
		num, typ, n, err := consumeTag(b, "Region")
		if err != nil {
			return err
		}
		b = b[n:]
		switch num {
		case 1:
			m.Name, n, err = consumeString(b, typ, "Region.name")
		case 2:
			m.NodeType, n, err = consumeString(b, typ, "Region.node_type")
		case 3:
			m.Dimensions, n, err = consumeRepeated(m.Dimensions, b, typ, "Region.dimensions")
		case 4:
			m.Phases, n, err = consumeRepeated(m.Phases, b, typ, "Region.phases")
		case 5:
			var v []byte
			v, n, err = consumeBytes(b, typ, "Region.region_impl")
			// Decoded messages must not alias the input buffer.
			m.RegionImpl = append(m.RegionImpl[:0], v...)
		default:
			n, err = skipField(b, num, typ, "Region")
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (m *Link) Reset() { *m = Link{} }

func (m *Link) SizeVT() (n int) {
	if m == nil {
		return 0
	}
	n += sizeLen(len(m.SrcRegion))
	n += sizeLen(len(m.SrcOutput))
	n += sizeLen(len(m.DestRegion))
	n += sizeLen(len(m.DestInput))
	return n
}

func (m *Link) MarshalToSizedBufferVT(dAtA []byte) (int, error) {
	i := len(dAtA)
	i = encodeString(dAtA, i, tag(4, protowire.BytesType), m.DestInput)
	i = encodeString(dAtA, i, tag(3, protowire.BytesType), m.DestRegion)
	i = encodeString(dAtA, i, tag(2, protowire.BytesType), m.SrcOutput)
	i = encodeString(dAtA, i, tag(1, protowire.BytesType), m.SrcRegion)
	return len(dAtA) - i, nil
}

func (m *Link) UnmarshalVT(b []byte) error {
	m.Reset()
	for len(b) > 0 {
		num, typ, n, err := consumeTag(b, "Link")
		if err != nil {
			return err
		}
		b = b[n:]
		switch num {
		case 1:
			m.SrcRegion, n, err = consumeString(b, typ, "Link.src_region")
		case 2:
			m.SrcOutput, n, err = consumeString(b, typ, "Link.src_output")
		case 3:
			m.DestRegion, n, err = consumeString(b, typ, "Link.dest_region")
		case 4:
			m.DestInput, n, err = consumeString(b, typ, "Link.dest_input")
		default:
			n, err = skipField(b, num, typ, "Link")
		}
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
