// Package registry provisions the container registry that stores images for
// the managed clusters this tool creates.
package registry

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerregistry/armcontainerregistry"
	"github.com/sirupsen/logrus"

	"go.goms.io/aks/AKSProvisioner/pkg/paging"
)

const defaultSKU = string(armcontainerregistry.SKUNameStandard)

// API is the subset of registry operations the service needs, with poller and
// pager mechanics hidden behind plain calls.
type API interface {
	CreateOrUpdate(ctx context.Context, resourceGroup, name string, registry armcontainerregistry.Registry) (*armcontainerregistry.Registry, error)
	Get(ctx context.Context, resourceGroup, name string) (*armcontainerregistry.Registry, error)
	Delete(ctx context.Context, resourceGroup, name string) error
	List(ctx context.Context) ([]*armcontainerregistry.Registry, error)
}

// CreateOptions tunes registry creation.
type CreateOptions struct {
	// SKU name; defaults to Standard.
	SKU string
	// AdminUserEnabled turns on the registry's admin account. Off by
	// default; role assignments are the supported access path.
	AdminUserEnabled bool
	Tags             map[string]string
}

// Service provisions and lists container registries.
type Service struct {
	api    API
	logger *logrus.Logger
}

// NewService creates a registry service.
func NewService(api API, logger *logrus.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// Ensure creates the registry if it does not exist and returns its handle.
// The create call is idempotent at the resource manager.
func (s *Service) Ensure(ctx context.Context, resourceGroup, name, location string, opts CreateOptions) (*armcontainerregistry.Registry, error) {
	sku := opts.SKU
	if sku == "" {
		sku = defaultSKU
	}

	reg := armcontainerregistry.Registry{
		Location: to.Ptr(location),
		SKU:      &armcontainerregistry.SKU{Name: to.Ptr(armcontainerregistry.SKUName(sku))},
		Properties: &armcontainerregistry.RegistryProperties{
			AdminUserEnabled: to.Ptr(opts.AdminUserEnabled),
		},
	}
	if len(opts.Tags) > 0 {
		reg.Tags = map[string]*string{}
		for k, v := range opts.Tags {
			reg.Tags[k] = to.Ptr(v)
		}
	}

	s.logger.Infof("Ensuring container registry %s/%s in %s (sku %s)", resourceGroup, name, location, sku)
	return s.api.CreateOrUpdate(ctx, resourceGroup, name, reg)
}

// Get fetches a registry.
func (s *Service) Get(ctx context.Context, resourceGroup, name string) (*armcontainerregistry.Registry, error) {
	return s.api.Get(ctx, resourceGroup, name)
}

// Delete removes a registry.
func (s *Service) Delete(ctx context.Context, resourceGroup, name string) error {
	s.logger.Infof("Deleting container registry %s/%s", resourceGroup, name)
	return s.api.Delete(ctx, resourceGroup, name)
}

// List returns every registry in the subscription.
func (s *Service) List(ctx context.Context) ([]*armcontainerregistry.Registry, error) {
	return s.api.List(ctx)
}

// ARMClient implements API against the Azure resource manager.
type ARMClient struct {
	registries *armcontainerregistry.RegistriesClient
}

// NewARMClient creates the registry SDK client for a subscription.
func NewARMClient(subscriptionID string, cred azcore.TokenCredential) (*ARMClient, error) {
	registries, err := armcontainerregistry.NewRegistriesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registries client: %w", err)
	}
	return &ARMClient{registries: registries}, nil
}

func (c *ARMClient) CreateOrUpdate(ctx context.Context, resourceGroup, name string, registry armcontainerregistry.Registry) (*armcontainerregistry.Registry, error) {
	poller, err := c.registries.BeginCreate(ctx, resourceGroup, name, registry, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry %s/%s: %w", resourceGroup, name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for registry %s/%s: %w", resourceGroup, name, err)
	}
	return &resp.Registry, nil
}

func (c *ARMClient) Get(ctx context.Context, resourceGroup, name string) (*armcontainerregistry.Registry, error) {
	resp, err := c.registries.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get registry %s/%s: %w", resourceGroup, name, err)
	}
	return &resp.Registry, nil
}

func (c *ARMClient) Delete(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.registries.BeginDelete(ctx, resourceGroup, name, nil)
	if err != nil {
		return fmt.Errorf("failed to delete registry %s/%s: %w", resourceGroup, name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("failed waiting for deletion of registry %s/%s: %w", resourceGroup, name, err)
	}
	return nil
}

func (c *ARMClient) List(ctx context.Context) ([]*armcontainerregistry.Registry, error) {
	pager := c.registries.NewListPager(nil)
	return paging.Collect(ctx, pager, func(page armcontainerregistry.RegistriesClientListResponse) []*armcontainerregistry.Registry {
		return page.Value
	})
}
