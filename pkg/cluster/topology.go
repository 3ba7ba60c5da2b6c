package cluster

// Agent pool modes accepted in a topology specification.
const (
	PoolModeSystem = "System"
	PoolModeUser   = "User"
)

// NormalizeTopology canonicalizes an agent pool topology for request-body
// embedding. The input order and length are preserved; element 0's mode is
// forced to System regardless of any caller-supplied value (the cluster must
// have its system pool first), all other elements are left untouched. An
// empty topology is rejected with ErrEmptyTopology.
func NormalizeTopology(pools []AgentPoolSpec) ([]AgentPoolSpec, error) {
	if len(pools) == 0 {
		return nil, ErrEmptyTopology
	}
	out := make([]AgentPoolSpec, len(pools))
	copy(out, pools)
	out[0].Mode = PoolModeSystem
	return out, nil
}
