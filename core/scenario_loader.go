// core/scenario_loader.go
package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/regionbench/model"
)

// NetworkScenario is a small summary of what was loaded from JSON.
// It’s mainly useful for logging from main().
type NetworkScenario struct {
	RegionNames []string
	LinkCount   int
}

// internal JSON shapes – keep them unexported so we’re free to evolve them.
type networkScenarioJSON struct {
	Regions []regionJSON `json:"regions"`
	Links   []linkJSON   `json:"links"`
}

type regionJSON struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Params     json.RawMessage `json:"params"`
	Phases     []uint32        `json:"phases"`
	Dimensions []uint32        `json:"dimensions"`
}

type linkJSON struct {
	Src       string `json:"src"`
	SrcOutput string `json:"src_output"`
	Dest      string `json:"dest"`
	DestInput string `json:"dest_input"`
}

// LoadNetworkScenario reads a JSON scenario from r and adds its regions and
// links to net. Region types must already be registered with the network's
// registry. It stops at the first region or link the network rejects.
func LoadNetworkScenario(net *Network, r io.Reader) (*NetworkScenario, error) {
	if net == nil {
		return nil, fmt.Errorf("LoadNetworkScenario: network is nil")
	}

	var payload networkScenarioJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadNetworkScenario: decode failed: %w", err)
	}
	if len(payload.Regions) == 0 {
		return nil, fmt.Errorf("LoadNetworkScenario: scenario has no regions")
	}

	result := &NetworkScenario{
		RegionNames: make([]string, 0, len(payload.Regions)),
	}

	// 1) Regions
	for _, js := range payload.Regions {
		spec := model.RegionSpec{
			Name:       js.Name,
			Type:       js.Type,
			Params:     js.Params,
			Phases:     js.Phases,
			Dimensions: js.Dimensions,
		}
		if _, err := net.AddRegionSpec(spec); err != nil {
			return nil, fmt.Errorf("LoadNetworkScenario: %w", err)
		}
		result.RegionNames = append(result.RegionNames, js.Name)
	}

	// 2) Links
	for _, js := range payload.Links {
		if err := net.Link(js.Src, js.SrcOutput, js.Dest, js.DestInput); err != nil {
			return nil, fmt.Errorf("LoadNetworkScenario: %w", err)
		}
		result.LinkCount++
	}

	return result, nil
}
