package core

import (
	"fmt"
	"slices"

	"github.com/signalsfoundry/regionbench/model"
)

// Region is a named instance of a registered region type inside a Network.
// The network owns its input and output buffers.
type Region struct {
	name       string
	typeName   string
	impl       model.RegionImpl
	dimensions []uint32
	phases     []uint32

	inputs  map[string][]float32
	outputs map[string][]float32
	// linked holds the subset of inputs fed by a link; it is what Compute sees.
	linked map[string][]float32
}

func newRegion(name, typeName string, impl model.RegionImpl) (*Region, error) {
	if impl == nil {
		return nil, fmt.Errorf("region %q: type %q built a nil implementation", name, typeName)
	}
	r := &Region{
		name:       name,
		typeName:   typeName,
		impl:       impl,
		dimensions: []uint32{1},
		phases:     []uint32{0},
		inputs:     make(map[string][]float32),
		outputs:    make(map[string][]float32),
		linked:     make(map[string][]float32),
	}
	if err := allocPorts(r.inputs, impl.Inputs()); err != nil {
		return nil, fmt.Errorf("region %q inputs: %w", name, err)
	}
	if err := allocPorts(r.outputs, impl.Outputs()); err != nil {
		return nil, fmt.Errorf("region %q outputs: %w", name, err)
	}
	return r, nil
}

func allocPorts(dst map[string][]float32, ports []model.PortSpec) error {
	for _, p := range ports {
		if p.Name == "" || p.Width <= 0 {
			return fmt.Errorf("%w: port %q width %d", ErrPortInvalid, p.Name, p.Width)
		}
		if _, dup := dst[p.Name]; dup {
			return fmt.Errorf("%w: duplicate port %q", ErrPortInvalid, p.Name)
		}
		dst[p.Name] = make([]float32, p.Width)
	}
	return nil
}

func (r *Region) Name() string { return r.name }
func (r *Region) Type() string { return r.typeName }
func (r *Region) Impl() model.RegionImpl { return r.impl }
func (r *Region) Dimensions() []uint32 { return slices.Clone(r.dimensions) }
func (r *Region) Phases() []uint32 { return slices.Clone(r.phases) }
func (r *Region) Output(name string) []float32 { return r.outputs[name] }
func (r *Region) Input(name string) []float32 { return r.inputs[name] }

func (r *Region) inPhase(phase uint32) bool {
	return slices.Contains(r.phases, phase)
}
