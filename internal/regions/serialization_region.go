// Package regions contains region implementations that ship with the
// engine.
package regions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/signalsfoundry/regionbench/core"
	"github.com/signalsfoundry/regionbench/internal/netproto"
	"github.com/signalsfoundry/regionbench/model"
)

const (
	SerializationTestRegionType = "SerializationTestRegion"

	InputName  = "in"
	OutputName = "out"

	// MaxDataWidth bounds the port buffers a decoded region may allocate.
	MaxDataWidth = 1 << 20
)

var ErrBadParams = errors.New("invalid region params")

// SerializationTestParams are the JSON params accepted by
// SerializationTestRegion.
type SerializationTestParams struct {
	DataWidth  int    `json:"dataWidth"`
	RandomSeed uint64 `json:"randomSeed"`
}

// SerializationTestRegion is a minimal region whose only state is its width
// and a Random instance. It exists to measure the cost of persisting a
// network, so its encoding is dominated by the generator state.
type SerializationTestRegion struct {
	dataWidth int
	rand      *core.Random

	proto netproto.SerializationTestRegion
}

// SerializationTestType returns the registry entry for SerializationTestRegion.
func SerializationTestType() model.RegionType {
	return model.RegionType{
		Name:        SerializationTestRegionType,
		Description: "copies its input to its output, or emits random data when unlinked",
		New: func(params []byte) (model.RegionImpl, error) {
			return NewSerializationTestRegion(params)
		},
		Read: func(data []byte) (model.RegionImpl, error) {
			return ReadSerializationTestRegion(data)
		},
	}
}

// NewSerializationTestRegion builds a region from JSON params. Unknown keys
// are rejected.
func NewSerializationTestRegion(params []byte) (*SerializationTestRegion, error) {
	var p SerializationTestParams
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	if p.DataWidth <= 0 || p.DataWidth > MaxDataWidth {
		return nil, fmt.Errorf("%w: dataWidth must be in [1, %d], got %d", ErrBadParams, MaxDataWidth, p.DataWidth)
	}
	return &SerializationTestRegion{
		dataWidth: p.DataWidth,
		rand:      core.NewRandom(p.RandomSeed),
	}, nil
}

// ReadSerializationTestRegion rebuilds a region from the bytes written by
// AppendProto.
func ReadSerializationTestRegion(data []byte) (*SerializationTestRegion, error) {
	r := &SerializationTestRegion{}
	if err := r.proto.UnmarshalVT(data); err != nil {
		return nil, err
	}
	if r.proto.DataWidth == 0 || r.proto.DataWidth > MaxDataWidth {
		return nil, fmt.Errorf("%w: stored dataWidth %d out of range", ErrBadParams, r.proto.DataWidth)
	}
	r.dataWidth = int(r.proto.DataWidth)
	r.rand = &core.Random{}
	if err := r.rand.Read(r.proto.Random); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SerializationTestRegion) DataWidth() int { return r.dataWidth }
func (r *SerializationTestRegion) Random() *core.Random { return r.rand }

func (r *SerializationTestRegion) Inputs() []model.PortSpec {
	return []model.PortSpec{{Name: InputName, Width: r.dataWidth}}
}

func (r *SerializationTestRegion) Outputs() []model.PortSpec {
	return []model.PortSpec{{Name: OutputName, Width: r.dataWidth}}
}

func (r *SerializationTestRegion) Compute(inputs, outputs map[string][]float32) error {
	out, ok := outputs[OutputName]
	if !ok {
		return fmt.Errorf("missing output %q", OutputName)
	}
	if in, ok := inputs[InputName]; ok {
		copy(out, in)
		return nil
	}
	for i := range out {
		out[i] = float32(r.rand.GetReal64())
	}
	return nil
}

func (r *SerializationTestRegion) AppendProto(dst []byte) ([]byte, error) {
	r.proto.DataWidth = uint32(r.dataWidth)
	if r.proto.Random == nil {
		r.proto.Random = &netproto.Random{}
	}
	r.rand.Write(r.proto.Random)
	return r.proto.AppendVT(dst)
}
