package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/signalsfoundry/regionbench/internal/netproto"
	"github.com/signalsfoundry/regionbench/kb"
	"github.com/signalsfoundry/regionbench/model"
)

var (
	ErrRegionExists      = errors.New("region already exists")
	ErrRegionNotFound    = errors.New("region not found")
	ErrRegionTypeUnknown = errors.New("region type not registered")
	ErrRegionBadInput    = errors.New("invalid region")
	ErrPortNotFound      = errors.New("port not found")
	ErrPortInvalid       = errors.New("invalid port")
	ErrLinkBadInput      = errors.New("invalid link")
)

// Network is a set of regions connected by links, computed phase by phase.
// Region types are resolved through a kb.Registry both when regions are
// added and when a network is read back from its binary form.
//
// A Network is not safe for concurrent use.
type Network struct {
	registry *kb.Registry

	regions []*Region
	byName  map[string]*Region
	links   []model.LinkSpec

	// builder and reader are reused across Save and Load calls.
	builder netproto.Network
	reader  netproto.Network
}

// NewNetwork creates an empty network resolving types through reg.
func NewNetwork(reg *kb.Registry) *Network {
	return &Network{
		registry: reg,
		byName:   make(map[string]*Region),
	}
}

// AddRegion instantiates a region of a registered type. params is a JSON
// object handed to the type's constructor; an empty string means "{}".
func (n *Network) AddRegion(name, typeName, params string) (*Region, error) {
	var raw json.RawMessage
	if params != "" {
		raw = json.RawMessage(params)
	}
	return n.AddRegionSpec(model.RegionSpec{Name: name, Type: typeName, Params: raw})
}

// AddRegionSpec is AddRegion with explicit phases and dimensions.
func (n *Network) AddRegionSpec(spec model.RegionSpec) (*Region, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrRegionBadInput)
	}
	if _, exists := n.byName[spec.Name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrRegionExists, spec.Name)
	}
	t, err := n.lookupType(spec.Type)
	if err != nil {
		return nil, err
	}

	params := []byte(spec.Params)
	if len(params) == 0 {
		params = []byte("{}")
	}
	impl, err := t.New(params)
	if err != nil {
		return nil, fmt.Errorf("create region %q of type %q: %w", spec.Name, spec.Type, err)
	}
	r, err := newRegion(spec.Name, spec.Type, impl)
	if err != nil {
		return nil, err
	}
	if len(spec.Dimensions) > 0 {
		if err := validDimensions(spec.Dimensions); err != nil {
			return nil, fmt.Errorf("region %q: %w", spec.Name, err)
		}
		r.dimensions = slices.Clone(spec.Dimensions)
	}
	if len(spec.Phases) > 0 {
		r.phases = normalizePhases(spec.Phases)
	}

	n.regions = append(n.regions, r)
	n.byName[r.name] = r
	return r, nil
}

// RemoveRegion deletes a region and every link that touches it.
func (n *Network) RemoveRegion(name string) error {
	if _, ok := n.byName[name]; !ok {
		return fmt.Errorf("%w: %q", ErrRegionNotFound, name)
	}
	delete(n.byName, name)
	n.regions = slices.DeleteFunc(n.regions, func(r *Region) bool { return r.name == name })
	n.links = slices.DeleteFunc(n.links, func(l model.LinkSpec) bool {
		if l.SrcRegion != name && l.DestRegion != name {
			return false
		}
		if dest, ok := n.byName[l.DestRegion]; ok {
			delete(dest.linked, l.DestInput)
		}
		return true
	})
	return nil
}

// GetRegion returns the region with the given name, or nil if not found.
func (n *Network) GetRegion(name string) *Region {
	return n.byName[name]
}

// Regions returns the regions in insertion order.
func (n *Network) Regions() []*Region {
	return slices.Clone(n.regions)
}

// Links returns a snapshot of the network's links.
func (n *Network) Links() []model.LinkSpec {
	return slices.Clone(n.links)
}

// SetPhases assigns the phases a region computes in. Duplicates are dropped.
func (n *Network) SetPhases(name string, phases ...uint32) error {
	r, ok := n.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRegionNotFound, name)
	}
	if len(phases) == 0 {
		return fmt.Errorf("%w: region %q needs at least one phase", ErrRegionBadInput, name)
	}
	r.phases = normalizePhases(phases)
	return nil
}

// SetDimensions sets the node layout of a region. Every dimension must be
// non-zero.
func (n *Network) SetDimensions(name string, dims ...uint32) error {
	r, ok := n.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRegionNotFound, name)
	}
	if err := validDimensions(dims); err != nil {
		return fmt.Errorf("region %q: %w", name, err)
	}
	r.dimensions = slices.Clone(dims)
	return nil
}

// Link connects src's output to dest's input. Port widths must match and an
// input can be fed by a single link.
func (n *Network) Link(src, srcOutput, dest, destInput string) error {
	l := model.LinkSpec{SrcRegion: src, SrcOutput: srcOutput, DestRegion: dest, DestInput: destInput}
	if err := checkLink(n.byName, n.links, l); err != nil {
		return err
	}
	n.links = append(n.links, l)
	connect(n.byName, l)
	return nil
}

func connect(regions map[string]*Region, l model.LinkSpec) {
	dest := regions[l.DestRegion]
	dest.linked[l.DestInput] = dest.inputs[l.DestInput]
}

func checkLink(regions map[string]*Region, existing []model.LinkSpec, l model.LinkSpec) error {
	src, ok := regions[l.SrcRegion]
	if !ok {
		return fmt.Errorf("link source: %w: %q", ErrRegionNotFound, l.SrcRegion)
	}
	dest, ok := regions[l.DestRegion]
	if !ok {
		return fmt.Errorf("link destination: %w: %q", ErrRegionNotFound, l.DestRegion)
	}
	out, ok := src.outputs[l.SrcOutput]
	if !ok {
		return fmt.Errorf("%w: output %q on region %q", ErrPortNotFound, l.SrcOutput, l.SrcRegion)
	}
	in, ok := dest.inputs[l.DestInput]
	if !ok {
		return fmt.Errorf("%w: input %q on region %q", ErrPortNotFound, l.DestInput, l.DestRegion)
	}
	if len(out) != len(in) {
		return fmt.Errorf("%w: %s.%s has width %d, %s.%s has width %d", ErrLinkBadInput,
			l.SrcRegion, l.SrcOutput, len(out), l.DestRegion, l.DestInput, len(in))
	}
	for _, e := range existing {
		if e.DestRegion == l.DestRegion && e.DestInput == l.DestInput {
			return fmt.Errorf("%w: input %s.%s is already linked from %s.%s", ErrLinkBadInput,
				l.DestRegion, l.DestInput, e.SrcRegion, e.SrcOutput)
		}
	}
	return nil
}

// Run executes iterations compute cycles. Each cycle visits phases in
// ascending order and, within a phase, regions in insertion order.
func (n *Network) Run(iterations int) error {
	if iterations < 0 {
		return fmt.Errorf("run: negative iteration count %d", iterations)
	}
	phases := n.phaseOrder()
	for i := 0; i < iterations; i++ {
		for _, p := range phases {
			for _, r := range n.regions {
				if !r.inPhase(p) {
					continue
				}
				n.pullInputs(r)
				if err := r.impl.Compute(r.linked, r.outputs); err != nil {
					return fmt.Errorf("compute region %q (phase %d): %w", r.name, p, err)
				}
			}
		}
	}
	return nil
}

func (n *Network) phaseOrder() []uint32 {
	var phases []uint32
	for _, r := range n.regions {
		phases = append(phases, r.phases...)
	}
	slices.Sort(phases)
	return slices.Compact(phases)
}

func (n *Network) pullInputs(r *Region) {
	for _, l := range n.links {
		if l.DestRegion != r.name {
			continue
		}
		copy(r.inputs[l.DestInput], n.byName[l.SrcRegion].outputs[l.SrcOutput])
	}
}

// Write overwrites msg with the network's regions and links. Calling it
// repeatedly with the same message replaces the previous contents.
func (n *Network) Write(msg *netproto.Network) error {
	if msg == nil {
		return fmt.Errorf("write network: nil message")
	}
	msg.Reset()
	for _, r := range n.regions {
		impl, err := r.impl.AppendProto(nil)
		if err != nil {
			return fmt.Errorf("write region %q: %w", r.name, err)
		}
		msg.Regions = append(msg.Regions, &netproto.Region{
			Name:       r.name,
			NodeType:   r.typeName,
			Dimensions: slices.Clone(r.dimensions),
			Phases:     slices.Clone(r.phases),
			RegionImpl: impl,
		})
	}
	for _, l := range n.links {
		msg.Links = append(msg.Links, &netproto.Link{
			SrcRegion:  l.SrcRegion,
			SrcOutput:  l.SrcOutput,
			DestRegion: l.DestRegion,
			DestInput:  l.DestInput,
		})
	}
	return nil
}

// Read replaces the network's contents with the regions and links in msg.
// Every region type must be registered. On error the network is unchanged.
func (n *Network) Read(msg *netproto.Network) error {
	if msg == nil {
		return fmt.Errorf("read network: nil message")
	}
	regions := make([]*Region, 0, len(msg.Regions))
	byName := make(map[string]*Region, len(msg.Regions))

	for i, rp := range msg.Regions {
		if rp == nil || rp.Name == "" {
			return fmt.Errorf("read network: region %d: %w: missing name", i, ErrRegionBadInput)
		}
		if _, dup := byName[rp.Name]; dup {
			return fmt.Errorf("read network: %w: %q", ErrRegionExists, rp.Name)
		}
		t, err := n.lookupType(rp.NodeType)
		if err != nil {
			return fmt.Errorf("read network: region %q: %w", rp.Name, err)
		}
		impl, err := t.Read(rp.RegionImpl)
		if err != nil {
			return fmt.Errorf("read network: region %q: %w", rp.Name, err)
		}
		r, err := newRegion(rp.Name, rp.NodeType, impl)
		if err != nil {
			return fmt.Errorf("read network: %w", err)
		}
		if len(rp.Dimensions) > 0 {
			if err := validDimensions(rp.Dimensions); err != nil {
				return fmt.Errorf("read network: region %q: %w", rp.Name, err)
			}
			r.dimensions = slices.Clone(rp.Dimensions)
		}
		if len(rp.Phases) > 0 {
			r.phases = normalizePhases(rp.Phases)
		}
		regions = append(regions, r)
		byName[r.name] = r
	}

	links := make([]model.LinkSpec, 0, len(msg.Links))
	for _, lp := range msg.Links {
		if lp == nil {
			return fmt.Errorf("read network: %w: nil link", ErrLinkBadInput)
		}
		l := model.LinkSpec{
			SrcRegion:  lp.SrcRegion,
			SrcOutput:  lp.SrcOutput,
			DestRegion: lp.DestRegion,
			DestInput:  lp.DestInput,
		}
		if err := checkLink(byName, links, l); err != nil {
			return fmt.Errorf("read network: %w", err)
		}
		links = append(links, l)
		connect(byName, l)
	}

	n.regions = regions
	n.byName = byName
	n.links = links
	return nil
}

// Save writes the network into its reusable builder message and appends the
// encoded bytes to dst.
func (n *Network) Save(dst []byte) ([]byte, error) {
	if err := n.Write(&n.builder); err != nil {
		return dst, err
	}
	out, err := n.builder.AppendVT(dst)
	if err != nil {
		return dst, fmt.Errorf("encode network: %w", err)
	}
	return out, nil
}

// Load decodes data and replaces the network's contents with it.
func (n *Network) Load(data []byte) error {
	if err := n.reader.UnmarshalVT(data); err != nil {
		return fmt.Errorf("decode network: %w", err)
	}
	return n.Read(&n.reader)
}

func (n *Network) lookupType(name string) (model.RegionType, error) {
	if n.registry == nil {
		return model.RegionType{}, fmt.Errorf("%w: %q (no registry)", ErrRegionTypeUnknown, name)
	}
	t, ok := n.registry.Lookup(name)
	if !ok {
		return model.RegionType{}, fmt.Errorf("%w: %q", ErrRegionTypeUnknown, name)
	}
	return t, nil
}

func validDimensions(dims []uint32) error {
	for i, d := range dims {
		if d == 0 {
			return fmt.Errorf("%w: dimension %d is zero", ErrRegionBadInput, i)
		}
	}
	return nil
}

func normalizePhases(phases []uint32) []uint32 {
	out := slices.Clone(phases)
	slices.Sort(out)
	return slices.Compact(out)
}
