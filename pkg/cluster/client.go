package cluster

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"

	"go.goms.io/aks/AKSProvisioner/pkg/paging"
)

// API is the subset of managed cluster operations the engine, rotator, and
// CLI commands need. It hides the poller and pager mechanics of the Azure SDK
// so unit tests can fake it with plain structs.
type API interface {
	CreateOrUpdate(ctx context.Context, resourceGroup, name string, cluster armcontainerservice.ManagedCluster, wait bool) (*armcontainerservice.ManagedCluster, error)
	Get(ctx context.Context, resourceGroup, name string) (*armcontainerservice.ManagedCluster, error)
	Delete(ctx context.Context, resourceGroup, name string, wait bool) error
	List(ctx context.Context) ([]*armcontainerservice.ManagedCluster, error)
	ResetServicePrincipalProfile(ctx context.Context, resourceGroup, name string, profile armcontainerservice.ManagedClusterServicePrincipalProfile) error
	ResetAADProfile(ctx context.Context, resourceGroup, name string, profile armcontainerservice.ManagedClusterAADProfile) error
}

// AgentPoolAPI is the subset of agent pool operations used after cluster
// creation.
type AgentPoolAPI interface {
	CreateOrUpdate(ctx context.Context, resourceGroup, clusterName, poolName string, pool armcontainerservice.AgentPool) (*armcontainerservice.AgentPool, error)
	Delete(ctx context.Context, resourceGroup, clusterName, poolName string) error
	List(ctx context.Context, resourceGroup, clusterName string) ([]*armcontainerservice.AgentPool, error)
}

// ARMClient implements API and AgentPoolAPI against the Azure resource
// manager.
type ARMClient struct {
	clusters *armcontainerservice.ManagedClustersClient
	pools    *armcontainerservice.AgentPoolsClient
}

// NewARMClient creates the managed cluster and agent pool SDK clients for a
// subscription.
func NewARMClient(subscriptionID string, cred azcore.TokenCredential) (*ARMClient, error) {
	clusters, err := armcontainerservice.NewManagedClustersClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create managed clusters client: %w", err)
	}
	pools, err := armcontainerservice.NewAgentPoolsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent pools client: %w", err)
	}
	return &ARMClient{clusters: clusters, pools: pools}, nil
}

// CreateOrUpdate submits a cluster create. With wait set it blocks until the
// asynchronous provisioning operation reaches a terminal state; a deployment
// failure after acceptance is reported as ProvisioningFailedError. Without
// wait it returns the resource handle as soon as the request is accepted.
func (c *ARMClient) CreateOrUpdate(ctx context.Context, resourceGroup, name string, cluster armcontainerservice.ManagedCluster, wait bool) (*armcontainerservice.ManagedCluster, error) {
	poller, err := c.clusters.BeginCreateOrUpdate(ctx, resourceGroup, name, cluster, nil)
	if err != nil {
		return nil, err
	}
	if !wait {
		return c.Get(ctx, resourceGroup, name)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, &ProvisioningFailedError{Err: err}
	}
	return &resp.ManagedCluster, nil
}

func (c *ARMClient) Get(ctx context.Context, resourceGroup, name string) (*armcontainerservice.ManagedCluster, error) {
	resp, err := c.clusters.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get managed cluster %s/%s: %w", resourceGroup, name, err)
	}
	return &resp.ManagedCluster, nil
}

func (c *ARMClient) Delete(ctx context.Context, resourceGroup, name string, wait bool) error {
	poller, err := c.clusters.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete managed cluster %s/%s: %w", resourceGroup, name, err)
	}
	if !wait {
		return nil
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed waiting for deletion of managed cluster %s/%s: %w", resourceGroup, name, err)
	}
	return nil
}

func (c *ARMClient) List(ctx context.Context) ([]*armcontainerservice.ManagedCluster, error) {
	pager := c.clusters.NewListPager(nil)
	return paging.Collect(ctx, pager, func(page armcontainerservice.ManagedClustersClientListResponse) []*armcontainerservice.ManagedCluster {
		return page.Value
	})
}

func (c *ARMClient) ResetServicePrincipalProfile(ctx context.Context, resourceGroup, name string, profile armcontainerservice.ManagedClusterServicePrincipalProfile) error {
	poller, err := c.clusters.BeginResetServicePrincipalProfile(ctx, resourceGroup, name, profile, nil)
	if err != nil {
		return fmt.Errorf("failed to reset service principal profile on %s/%s: %w", resourceGroup, name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed waiting for service principal profile reset on %s/%s: %w", resourceGroup, name, err)
	}
	return nil
}

func (c *ARMClient) ResetAADProfile(ctx context.Context, resourceGroup, name string, profile armcontainerservice.ManagedClusterAADProfile) error {
	poller, err := c.clusters.BeginResetAADProfile(ctx, resourceGroup, name, profile, nil)
	if err != nil {
		return fmt.Errorf("failed to reset AAD profile on %s/%s: %w", resourceGroup, name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed waiting for AAD profile reset on %s/%s: %w", resourceGroup, name, err)
	}
	return nil
}

// agentPoolClient adapts the SDK agent pool client to AgentPoolAPI.
type agentPoolClient struct {
	pools *armcontainerservice.AgentPoolsClient
}

// AgentPools returns the agent pool operations of this client.
func (c *ARMClient) AgentPools() AgentPoolAPI {
	return &agentPoolClient{pools: c.pools}
}

func (c *agentPoolClient) CreateOrUpdate(ctx context.Context, resourceGroup, clusterName, poolName string, pool armcontainerservice.AgentPool) (*armcontainerservice.AgentPool, error) {
	poller, err := c.pools.BeginCreateOrUpdate(ctx, resourceGroup, clusterName, poolName, pool, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent pool %s on %s/%s: %w", poolName, resourceGroup, clusterName, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for agent pool %s on %s/%s: %w", poolName, resourceGroup, clusterName, err)
	}
	return &resp.AgentPool, nil
}

func (c *agentPoolClient) Delete(ctx context.Context, resourceGroup, clusterName, poolName string) error {
	poller, err := c.pools.BeginDelete(ctx, resourceGroup, clusterName, poolName, nil)
	if err != nil {
		return fmt.Errorf("failed to delete agent pool %s on %s/%s: %w", poolName, resourceGroup, clusterName, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed waiting for deletion of agent pool %s on %s/%s: %w", poolName, resourceGroup, clusterName, err)
	}
	return nil
}

func (c *agentPoolClient) List(ctx context.Context, resourceGroup, clusterName string) ([]*armcontainerservice.AgentPool, error) {
	pager := c.pools.NewListPager(resourceGroup, clusterName, nil)
	return paging.Collect(ctx, pager, func(page armcontainerservice.AgentPoolsClientListResponse) []*armcontainerservice.AgentPool {
		return page.Value
	})
}
