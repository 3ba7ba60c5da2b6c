package cluster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"go.goms.io/aks/AKSProvisioner/pkg/directory"
)

// AgentPoolSpec describes one homogeneous group of worker machines.
type AgentPoolSpec struct {
	Name         string `json:"name" yaml:"name"`
	NodeCount    int32  `json:"nodeCount" yaml:"nodeCount"`
	VMSize       string `json:"vmSize" yaml:"vmSize"`
	OSType       string `json:"osType" yaml:"osType"`
	Mode         string `json:"mode" yaml:"mode"`
	OSDiskSizeGB int32  `json:"osDiskSizeGB" yaml:"osDiskSizeGB"`
}

// ClusterSpec is the desired state submitted to the provisioning engine.
// Either AgentPool (single-pool convenience form) or AgentPools may be set;
// when both are present the single pool is prepended.
type ClusterSpec struct {
	Name              string `json:"name" yaml:"name"`
	ResourceGroup     string `json:"resourceGroup" yaml:"resourceGroup"`
	Location          string `json:"location" yaml:"location"`
	KubernetesVersion string `json:"kubernetesVersion" yaml:"kubernetesVersion"`
	DNSPrefix         string `json:"dnsPrefix" yaml:"dnsPrefix"`

	// ManagedIdentity selects the platform-managed identity mode. When false
	// the engine provisions or reuses a directory application (classic
	// service principal mode) via the ServicePrincipal candidate.
	ManagedIdentity  bool                            `json:"managedIdentity" yaml:"managedIdentity"`
	ServicePrincipal *directory.ApplicationCandidate `json:"servicePrincipal" yaml:"servicePrincipal"`

	EnableRBAC     *bool  `json:"enableRBAC" yaml:"enableRBAC"`
	PrivateCluster bool   `json:"privateCluster" yaml:"privateCluster"`
	AdminUsername  string `json:"adminUsername" yaml:"adminUsername"`
	SSHPublicKey   string `json:"sshPublicKey" yaml:"sshPublicKey"`

	Tags map[string]string `json:"tags" yaml:"tags"`

	AgentPool  *AgentPoolSpec  `json:"agentPool" yaml:"agentPool"`
	AgentPools []AgentPoolSpec `json:"agentPools" yaml:"agentPools"`

	// ExtraProperties is deep-merged over the computed request body before
	// submission; caller values win on key conflicts.
	ExtraProperties map[string]any `json:"extraProperties" yaml:"extraProperties"`
}

// LoadClusterSpec reads a cluster specification from a YAML file.
func LoadClusterSpec(path string) (*ClusterSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster spec file %s: %w", path, err)
	}
	spec := &ClusterSpec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse cluster spec file %s: %w", path, err)
	}
	return spec, nil
}

// topology flattens the single-pool and sequence forms into one ordered list.
func (s *ClusterSpec) topology() []AgentPoolSpec {
	if s.AgentPool == nil {
		return s.AgentPools
	}
	return append([]AgentPoolSpec{*s.AgentPool}, s.AgentPools...)
}

// Validate checks the specification invariants that do not require network
// round-trips: required identity fields, non-negative node counts, and agent
// pool name uniqueness.
func (s *ClusterSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("cluster name is required")
	}
	if s.ResourceGroup == "" {
		return fmt.Errorf("cluster resourceGroup is required")
	}
	if s.Location == "" {
		return fmt.Errorf("cluster location is required")
	}

	seen := map[string]bool{}
	for _, pool := range s.topology() {
		if pool.Name == "" {
			return fmt.Errorf("agent pool name is required")
		}
		if seen[pool.Name] {
			return fmt.Errorf("duplicate agent pool name %q", pool.Name)
		}
		seen[pool.Name] = true
		if pool.NodeCount < 0 {
			return fmt.Errorf("agent pool %q has negative nodeCount %d", pool.Name, pool.NodeCount)
		}
	}
	return nil
}

// rbacEnabled returns the effective RBAC setting; enabled unless explicitly
// turned off.
func (s *ClusterSpec) rbacEnabled() bool {
	return s.EnableRBAC == nil || *s.EnableRBAC
}
