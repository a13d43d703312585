package model

import "encoding/json"

// PortSpec describes a named input or output of a region and the number of
// elements it carries per compute step.
type PortSpec struct {
	Name  string
	Width int
}

// RegionImpl is the behaviour a concrete region type plugs into a Network.
type RegionImpl interface {
	Inputs() []PortSpec
	Outputs() []PortSpec

	// Compute reads from inputs and writes to outputs. inputs only holds the
	// ports fed by a link. Buffers are owned by the network and sized from
	// the port specs.
	Compute(inputs, outputs map[string][]float32) error

	// AppendProto appends the region's own binary encoding to dst.
	AppendProto(dst []byte) ([]byte, error)
}

// RegionType is the registry entry for a region implementation.
// New builds a fresh region from a JSON params object; Read rebuilds one from
// the bytes produced by AppendProto.
type RegionType struct {
	Name        string
	Description string

	New  func(params []byte) (RegionImpl, error)
	Read func(data []byte) (RegionImpl, error)
}

// RegionSpec is the declarative form of a region inside a network scenario.
type RegionSpec struct {
	Name       string
	Type       string
	Params     json.RawMessage
	Dimensions []uint32
	Phases     []uint32
}
