package cluster

import (
	"errors"
	"testing"
)

func TestNormalizeTopology_FirstPoolBecomesSystem(t *testing.T) {
	in := []AgentPoolSpec{
		{Name: "pool1", NodeCount: 1, Mode: PoolModeUser},
		{Name: "pool2", NodeCount: 3, Mode: PoolModeUser},
		{Name: "pool3", NodeCount: 0},
	}

	out, err := NormalizeTopology(in)
	if err != nil {
		t.Fatalf("NormalizeTopology() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d pools, got %d", len(in), len(out))
	}
	if out[0].Mode != PoolModeSystem {
		t.Fatalf("expected first pool mode System, got %q", out[0].Mode)
	}
	if out[1].Mode != PoolModeUser || out[2].Mode != "" {
		t.Fatalf("other pools must be untouched: %+v", out[1:])
	}
	for i := range in {
		if out[i].Name != in[i].Name {
			t.Fatalf("pool order changed at %d: expected %q, got %q", i, in[i].Name, out[i].Name)
		}
	}
	// input must not be mutated
	if in[0].Mode != PoolModeUser {
		t.Fatalf("input slice was mutated: %+v", in[0])
	}
}

func TestNormalizeTopology_SinglePool(t *testing.T) {
	out, err := NormalizeTopology([]AgentPoolSpec{{Name: "only", NodeCount: 1}})
	if err != nil {
		t.Fatalf("NormalizeTopology() error = %v", err)
	}
	if len(out) != 1 || out[0].Mode != PoolModeSystem {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestNormalizeTopology_Empty(t *testing.T) {
	if _, err := NormalizeTopology(nil); !errors.Is(err, ErrEmptyTopology) {
		t.Fatalf("expected ErrEmptyTopology, got %v", err)
	}
}

func TestClusterSpec_TopologyWrapsSinglePool(t *testing.T) {
	spec := &ClusterSpec{
		Name:          "c1",
		ResourceGroup: "rg",
		Location:      "eastus",
		AgentPool:     &AgentPoolSpec{Name: "pool1", NodeCount: 1},
	}

	pools := spec.topology()
	if len(pools) != 1 || pools[0].Name != "pool1" {
		t.Fatalf("unexpected topology: %+v", pools)
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestClusterSpec_ValidateRejectsDuplicatePoolNames(t *testing.T) {
	spec := &ClusterSpec{
		Name:          "c1",
		ResourceGroup: "rg",
		Location:      "eastus",
		AgentPools: []AgentPoolSpec{
			{Name: "pool1", NodeCount: 1},
			{Name: "pool1", NodeCount: 2},
		},
	}
	if err := spec.Validate(); err == nil {
		t.Fatalf("expected error for duplicate pool names")
	}
}

func TestClusterSpec_ValidateRejectsNegativeNodeCount(t *testing.T) {
	spec := &ClusterSpec{
		Name:          "c1",
		ResourceGroup: "rg",
		Location:      "eastus",
		AgentPools:    []AgentPoolSpec{{Name: "pool1", NodeCount: -1}},
	}
	if err := spec.Validate(); err == nil {
		t.Fatalf("expected error for negative node count")
	}
}
