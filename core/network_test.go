package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/signalsfoundry/regionbench/internal/netproto"
	"github.com/signalsfoundry/regionbench/kb"
	"github.com/signalsfoundry/regionbench/model"
)

// counterRegion is a test region: it counts compute calls and either adds one
// to its input or emits its count.
type counterRegion struct {
	Tag   string `json:"tag"`
	Width int    `json:"width"`
	Count int    `json:"count"`

	trace *[]string
}

func (c *counterRegion) Inputs() []model.PortSpec {
	return []model.PortSpec{{Name: "in", Width: c.Width}}
}

func (c *counterRegion) Outputs() []model.PortSpec {
	return []model.PortSpec{{Name: "out", Width: c.Width}}
}

func (c *counterRegion) Compute(inputs, outputs map[string][]float32) error {
	c.Count++
	if c.trace != nil {
		*c.trace = append(*c.trace, c.Tag)
	}
	out := outputs["out"]
	if in, ok := inputs["in"]; ok {
		for i := range out {
			out[i] = in[i] + 1
		}
		return nil
	}
	for i := range out {
		out[i] = float32(c.Count)
	}
	return nil
}

func (c *counterRegion) AppendProto(dst []byte) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return dst, err
	}
	return append(dst, b...), nil
}

func counterType(trace *[]string) model.RegionType {
	decode := func(b []byte) (model.RegionImpl, error) {
		c := &counterRegion{trace: trace}
		if err := json.Unmarshal(b, c); err != nil {
			return nil, err
		}
		if c.Width <= 0 {
			return nil, fmt.Errorf("width must be positive")
		}
		return c, nil
	}
	return model.RegionType{Name: "Counter", New: decode, Read: decode}
}

func newTestNetwork(t *testing.T, trace *[]string) (*Network, *kb.Registry) {
	t.Helper()
	reg := kb.NewRegistry()
	if err := reg.Register(counterType(trace)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return NewNetwork(reg), reg
}

func TestAddRegionDefaults(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	r, err := net.AddRegion("a", "Counter", `{"tag":"a","width":3}`)
	if err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if r.Name() != "a" || r.Type() != "Counter" {
		t.Fatalf("region = %s/%s", r.Name(), r.Type())
	}
	if !reflect.DeepEqual(r.Dimensions(), []uint32{1}) || !reflect.DeepEqual(r.Phases(), []uint32{0}) {
		t.Fatalf("defaults dims=%v phases=%v, want [1] [0]", r.Dimensions(), r.Phases())
	}
	if len(r.Output("out")) != 3 || len(r.Input("in")) != 3 {
		t.Fatalf("port buffers not sized from port widths")
	}
	if net.GetRegion("a") != r {
		t.Fatalf("GetRegion returned a different region")
	}
}

func TestAddRegionErrors(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	if _, err := net.AddRegion("a", "Counter", `{"width":1}`); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}

	cases := []struct {
		name     string
		region   string
		typeName string
		params   string
		want     error
	}{
		{"unknown type", "b", "Missing", "", ErrRegionTypeUnknown},
		{"duplicate", "a", "Counter", `{"width":1}`, ErrRegionExists},
		{"empty name", "", "Counter", `{"width":1}`, ErrRegionBadInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := net.AddRegion(tc.region, tc.typeName, tc.params); !errors.Is(err, tc.want) {
				t.Fatalf("AddRegion error = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := net.AddRegion("c", "Counter", `{"width":0}`); err == nil {
		t.Fatalf("expected constructor error to surface")
	}
	if len(net.Regions()) != 1 {
		t.Fatalf("failed adds must not change the network, got %d regions", len(net.Regions()))
	}
}

func TestSetPhasesAndDimensions(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	if _, err := net.AddRegion("a", "Counter", `{"width":1}`); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if err := net.SetPhases("a", 2, 1, 2); err != nil {
		t.Fatalf("SetPhases: %v", err)
	}
	if got := net.GetRegion("a").Phases(); !reflect.DeepEqual(got, []uint32{1, 2}) {
		t.Fatalf("Phases = %v, want [1 2]", got)
	}
	if err := net.SetDimensions("a", 4, 0); !errors.Is(err, ErrRegionBadInput) {
		t.Fatalf("SetDimensions zero error = %v", err)
	}
	if err := net.SetDimensions("missing", 1); !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("SetDimensions missing error = %v", err)
	}
	if err := net.SetPhases("a"); !errors.Is(err, ErrRegionBadInput) {
		t.Fatalf("SetPhases empty error = %v", err)
	}
}

func TestLinkValidation(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	for _, spec := range []struct{ name, params string }{
		{"a", `{"width":2}`},
		{"b", `{"width":2}`},
		{"c", `{"width":2}`},
		{"wide", `{"width":5}`},
	} {
		if _, err := net.AddRegion(spec.name, "Counter", spec.params); err != nil {
			t.Fatalf("AddRegion(%s): %v", spec.name, err)
		}
	}

	if err := net.Link("a", "out", "b", "in"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	cases := []struct {
		name                      string
		src, srcOut, dest, destIn string
		want                      error
	}{
		{"missing source", "x", "out", "b", "in", ErrRegionNotFound},
		{"missing dest", "a", "out", "x", "in", ErrRegionNotFound},
		{"missing output", "a", "nope", "wide", "in", ErrPortNotFound},
		{"missing input", "a", "out", "wide", "nope", ErrPortNotFound},
		{"width mismatch", "a", "out", "wide", "in", ErrLinkBadInput},
		{"input taken", "c", "out", "b", "in", ErrLinkBadInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := net.Link(tc.src, tc.srcOut, tc.dest, tc.destIn); !errors.Is(err, tc.want) {
				t.Fatalf("Link error = %v, want %v", err, tc.want)
			}
		})
	}
	if len(net.Links()) != 1 {
		t.Fatalf("Links = %v, want exactly one", net.Links())
	}
}

func TestRunOrdersByPhaseThenInsertion(t *testing.T) {
	var trace []string
	net, _ := newTestNetwork(t, &trace)
	for _, name := range []string{"late", "early", "both"} {
		if _, err := net.AddRegion(name, "Counter", fmt.Sprintf(`{"tag":%q,"width":1}`, name)); err != nil {
			t.Fatalf("AddRegion(%s): %v", name, err)
		}
	}
	_ = net.SetPhases("late", 2)
	_ = net.SetPhases("early", 0)
	_ = net.SetPhases("both", 0, 2)

	if err := net.Run(2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"early", "both", "late", "both", "early", "both", "late", "both"}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("compute order = %v, want %v", trace, want)
	}
}

func TestRunPropagatesLinkedOutputs(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	_, _ = net.AddRegion("src", "Counter", `{"width":2}`)
	_, _ = net.AddRegion("dst", "Counter", `{"width":2}`)
	_ = net.SetPhases("dst", 1)
	if err := net.Link("src", "out", "dst", "in"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := net.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// src emits its count (3); dst adds one to what it received.
	if got := net.GetRegion("dst").Output("out"); got[0] != 4 || got[1] != 4 {
		t.Fatalf("dst output = %v, want [4 4]", got)
	}
}

func TestRemoveRegionDropsLinks(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	_, _ = net.AddRegion("a", "Counter", `{"width":1}`)
	_, _ = net.AddRegion("b", "Counter", `{"width":1}`)
	_ = net.Link("a", "out", "b", "in")

	if err := net.RemoveRegion("a"); err != nil {
		t.Fatalf("RemoveRegion: %v", err)
	}
	if len(net.Links()) != 0 {
		t.Fatalf("links survived region removal: %v", net.Links())
	}
	if len(net.GetRegion("b").linked) != 0 {
		t.Fatalf("b still sees a linked input")
	}
	if err := net.RemoveRegion("a"); !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("second RemoveRegion error = %v", err)
	}
}

func TestWriteOverwritesMessage(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	_, _ = net.AddRegion("a", "Counter", `{"width":1}`)

	var msg netproto.Network
	for i := 0; i < 3; i++ {
		if err := net.Write(&msg); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if len(msg.Regions) != 1 {
		t.Fatalf("message holds %d regions after repeated writes, want 1", len(msg.Regions))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	net, reg := newTestNetwork(t, nil)
	_, _ = net.AddRegionSpec(model.RegionSpec{
		Name: "a", Type: "Counter", Params: json.RawMessage(`{"tag":"a","width":2}`),
		Dimensions: []uint32{2, 3}, Phases: []uint32{1},
	})
	_, _ = net.AddRegion("b", "Counter", `{"tag":"b","width":2}`)
	_ = net.Link("a", "out", "b", "in")
	if err := net.Run(5); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := net.Save(nil)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := NewNetwork(reg)
	if err := restored.Load(data); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := restored.GetRegion("a"); got == nil || !reflect.DeepEqual(got.Dimensions(), []uint32{2, 3}) {
		t.Fatalf("region a not restored with its dimensions")
	}
	if c := restored.GetRegion("a").Impl().(*counterRegion); c.Count != 5 {
		t.Fatalf("restored count = %d, want 5", c.Count)
	}
	if !reflect.DeepEqual(restored.Links(), net.Links()) {
		t.Fatalf("links = %v, want %v", restored.Links(), net.Links())
	}

	again, err := restored.Save(nil)
	if err != nil {
		t.Fatalf("re-Save: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Fatalf("save -> load -> save is not byte-stable")
	}
}

func TestSaveAppendsToBuffer(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	_, _ = net.AddRegion("a", "Counter", `{"width":1}`)
	first, err := net.Save(nil)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	buf := make([]byte, 0, 4*len(first))
	for i := 0; i < 3; i++ {
		buf, err = net.Save(buf[:0])
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if !bytes.Equal(buf, first) {
		t.Fatalf("reused buffer differs from first save")
	}
}

func TestLoadUnregisteredTypeLeavesNetworkUnchanged(t *testing.T) {
	net, reg := newTestNetwork(t, nil)
	_, _ = net.AddRegion("a", "Counter", `{"width":1}`)
	data, err := net.Save(nil)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := reg.Unregister("Counter"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := net.Load(data); !errors.Is(err, ErrRegionTypeUnknown) {
		t.Fatalf("Load error = %v, want ErrRegionTypeUnknown", err)
	}
	if net.GetRegion("a") == nil || len(net.Regions()) != 1 {
		t.Fatalf("failed Load modified the network")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	if err := net.Load([]byte{0x0a, 0x05, 0x01}); !errors.Is(err, netproto.ErrMalformed) {
		t.Fatalf("Load error = %v, want ErrMalformed", err)
	}
}

func TestReadRejectsBadLinks(t *testing.T) {
	net, _ := newTestNetwork(t, nil)
	_, _ = net.AddRegion("a", "Counter", `{"width":1}`)
	var msg netproto.Network
	if err := net.Write(&msg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	msg.Links = append(msg.Links, &netproto.Link{SrcRegion: "a", SrcOutput: "out", DestRegion: "ghost", DestInput: "in"})
	if err := net.Read(&msg); !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("Read error = %v, want ErrRegionNotFound", err)
	}
}

func TestNilRegistry(t *testing.T) {
	net := NewNetwork(nil)
	if _, err := net.AddRegion("a", "Counter", ""); !errors.Is(err, ErrRegionTypeUnknown) {
		t.Fatalf("AddRegion error = %v, want ErrRegionTypeUnknown", err)
	}
}
