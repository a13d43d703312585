// Package netproto holds the binary schema used to persist a Network.
//
// Messages use the protobuf wire format. Encoding follows the vtprotobuf
// layout (size first, then fill the buffer back to front) and decoding walks
// the input with protowire, skipping fields it does not know.
package netproto

import (
	"errors"
	"fmt"

	"github.com/planetscale/vtprotobuf/protohelpers"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is wrapped by every decode failure.
var ErrMalformed = errors.New("netproto: malformed message")

func malformed(field string, n int) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, field, protowire.ParseError(n))
}

func wrongType(field string, typ protowire.Type) error {
	return fmt.Errorf("%w: %s: unexpected wire type %d", ErrMalformed, field, typ)
}

// tag returns the single-byte key for field numbers below 16.
func tag(num protowire.Number, typ protowire.Type) byte {
	return byte(protowire.EncodeTag(num, typ))
}

// ---- sizing ----

func sizeLen(l int) int {
	if l == 0 {
		return 0
	}
	return 1 + protohelpers.SizeOfVarint(uint64(l)) + l
}

// sizeEmbedded is always counted: an empty element of a repeated message
// field still occupies its key and a zero length.
func sizeEmbedded(l int) int {
	return 1 + protohelpers.SizeOfVarint(uint64(l)) + l
}

func sizeVarint(v uint64) int {
	if v == 0 {
		return 0
	}
	return 1 + protohelpers.SizeOfVarint(v)
}

func packedPayload[T ~uint32 | ~int64](vs []T) int {
	n := 0
	for _, v := range vs {
		n += protohelpers.SizeOfVarint(uint64(v))
	}
	return n
}

func sizePacked[T ~uint32 | ~int64](vs []T) int {
	if len(vs) == 0 {
		return 0
	}
	return sizeLen(packedPayload(vs))
}

// ---- encoding (back to front) ----

func encodeString(dAtA []byte, i int, key byte, s string) int {
	if len(s) == 0 {
		return i
	}
	i -= len(s)
	copy(dAtA[i:], s)
	i = protohelpers.EncodeVarint(dAtA, i, uint64(len(s)))
	i--
	dAtA[i] = key
	return i
}

func encodeBytes(dAtA []byte, i int, key byte, b []byte) int {
	if len(b) == 0 {
		return i
	}
	i -= len(b)
	copy(dAtA[i:], b)
	i = protohelpers.EncodeVarint(dAtA, i, uint64(len(b)))
	i--
	dAtA[i] = key
	return i
}

// encodeEmbedded prefixes a message of size bytes that was just written
// ending at offset i.
func encodeEmbedded(dAtA []byte, i int, key byte, size int) int {
	i -= size
	i = protohelpers.EncodeVarint(dAtA, i, uint64(size))
	i--
	dAtA[i] = key
	return i
}

func encodeVarintField(dAtA []byte, i int, key byte, v uint64) int {
	if v == 0 {
		return i
	}
	i = protohelpers.EncodeVarint(dAtA, i, v)
	i--
	dAtA[i] = key
	return i
}

func encodePacked[T ~uint32 | ~int64](dAtA []byte, i int, key byte, vs []T) int {
	if len(vs) == 0 {
		return i
	}
	payload := packedPayload(vs)
	i -= payload
	j := i
	for _, v := range vs {
		j = len(protowire.AppendVarint(dAtA[:j], uint64(v)))
	}
	i = protohelpers.EncodeVarint(dAtA, i, uint64(payload))
	i--
	dAtA[i] = key
	return i
}

// ---- decoding ----

func consumeString(b []byte, typ protowire.Type, field string) (string, int, error) {
	if typ != protowire.BytesType {
		return "", 0, wrongType(field, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return "", 0, malformed(field, n)
	}
	return string(v), n, nil
}

func consumeBytes(b []byte, typ protowire.Type, field string) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, wrongType(field, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, malformed(field, n)
	}
	return v, n, nil
}

func consumeVarint(b []byte, typ protowire.Type, field string) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, wrongType(field, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, malformed(field, n)
	}
	return v, n, nil
}

// consumeRepeated accepts both the packed and the unpacked encoding of a
// repeated scalar, as protobuf parsers must.
func consumeRepeated[T ~uint32 | ~int64](dst []T, b []byte, typ protowire.Type, field string) ([]T, int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return dst, 0, malformed(field, n)
		}
		return append(dst, T(v)), n, nil
	case protowire.BytesType:
		payload, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return dst, 0, malformed(field, n)
		}
		for len(payload) > 0 {
			v, m := protowire.ConsumeVarint(payload)
			if m < 0 {
				return dst, 0, malformed(field, m)
			}
			dst = append(dst, T(v))
			payload = payload[m:]
		}
		return dst, n, nil
	default:
		return dst, 0, wrongType(field, typ)
	}
}

func skipField(b []byte, num protowire.Number, typ protowire.Type, msg string) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, malformed(fmt.Sprintf("%s field %d", msg, num), n)
	}
	return n, nil
}

func consumeTag(b []byte, msg string) (protowire.Number, protowire.Type, int, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return 0, 0, 0, malformed(msg+" tag", n)
	}
	return num, typ, n, nil
}

func checkSize(msg string, got, want int) error {
	if got != want {
		return fmt.Errorf("netproto: %s encoded %d bytes, sized %d", msg, got, want)
	}
	return nil
}
