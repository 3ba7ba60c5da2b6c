package cluster

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"
	"github.com/sirupsen/logrus"
)

// AgentPoolService manages agent pools on an existing cluster.
type AgentPoolService struct {
	api    AgentPoolAPI
	logger *logrus.Logger
}

// NewAgentPoolService creates an agent pool service.
func NewAgentPoolService(api AgentPoolAPI, logger *logrus.Logger) *AgentPoolService {
	return &AgentPoolService{api: api, logger: logger}
}

// Add creates a new pool on the cluster. Pool names are unique within a
// cluster; a clash with an existing pool is rejected before submission.
func (s *AgentPoolService) Add(ctx context.Context, resourceGroup, clusterName string, pool AgentPoolSpec) (*armcontainerservice.AgentPool, error) {
	if pool.Name == "" {
		return nil, fmt.Errorf("agent pool name is required")
	}
	if pool.NodeCount < 0 {
		return nil, fmt.Errorf("agent pool %q has negative nodeCount %d", pool.Name, pool.NodeCount)
	}

	existing, err := s.api.List(ctx, resourceGroup, clusterName)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.Name != nil && *p.Name == pool.Name {
			return nil, fmt.Errorf("agent pool %q already exists on cluster %s", pool.Name, clusterName)
		}
	}

	profile := poolProfile(pool)
	s.logger.Infof("Adding agent pool %s to cluster %s/%s", pool.Name, resourceGroup, clusterName)
	return s.api.CreateOrUpdate(ctx, resourceGroup, clusterName, pool.Name, armcontainerservice.AgentPool{
		Properties: &armcontainerservice.ManagedClusterAgentPoolProfileProperties{
			Count:        profile.Count,
			VMSize:       profile.VMSize,
			OSType:       profile.OSType,
			Mode:         profile.Mode,
			Type:         profile.Type,
			OSDiskSizeGB: profile.OSDiskSizeGB,
		},
	})
}

// Remove deletes a pool. The system pool cannot be removed.
func (s *AgentPoolService) Remove(ctx context.Context, resourceGroup, clusterName, poolName string) error {
	existing, err := s.api.List(ctx, resourceGroup, clusterName)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p.Name != nil && *p.Name == poolName &&
			p.Properties != nil && p.Properties.Mode != nil && *p.Properties.Mode == armcontainerservice.AgentPoolModeSystem {
			return fmt.Errorf("agent pool %q is the system pool and cannot be removed", poolName)
		}
	}
	s.logger.Infof("Removing agent pool %s from cluster %s/%s", poolName, resourceGroup, clusterName)
	return s.api.Delete(ctx, resourceGroup, clusterName, poolName)
}

// List returns all pools of a cluster.
func (s *AgentPoolService) List(ctx context.Context, resourceGroup, clusterName string) ([]*armcontainerservice.AgentPool, error) {
	return s.api.List(ctx, resourceGroup, clusterName)
}
