package registry

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerregistry/armcontainerregistry"
	"github.com/sirupsen/logrus"
)

type fakeAPI struct {
	created   []armcontainerregistry.Registry
	createErr error
	deleted   []string
	listed    []*armcontainerregistry.Registry
}

func (f *fakeAPI) CreateOrUpdate(ctx context.Context, resourceGroup, name string, registry armcontainerregistry.Registry) (*armcontainerregistry.Registry, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, registry)
	return &registry, nil
}

func (f *fakeAPI) Get(ctx context.Context, resourceGroup, name string) (*armcontainerregistry.Registry, error) {
	return &armcontainerregistry.Registry{Name: &name}, nil
}

func (f *fakeAPI) Delete(ctx context.Context, resourceGroup, name string) error {
	f.deleted = append(f.deleted, resourceGroup+"/"+name)
	return nil
}

func (f *fakeAPI) List(ctx context.Context) ([]*armcontainerregistry.Registry, error) {
	return f.listed, nil
}

func newTestService(api API) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(api, logger)
}

func TestEnsureDefaults(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(api)

	reg, err := svc.Ensure(context.Background(), "rg", "myacr", "eastus", CreateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(*reg.SKU.Name); got != "Standard" {
		t.Errorf("expected Standard SKU by default, got %s", got)
	}
	if *reg.Properties.AdminUserEnabled {
		t.Error("expected admin user disabled by default")
	}
	if *reg.Location != "eastus" {
		t.Errorf("unexpected location %s", *reg.Location)
	}
}

func TestEnsureOptions(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(api)

	reg, err := svc.Ensure(context.Background(), "rg", "myacr", "eastus", CreateOptions{
		SKU:              "Premium",
		AdminUserEnabled: true,
		Tags:             map[string]string{"env": "dev"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(*reg.SKU.Name); got != "Premium" {
		t.Errorf("expected Premium SKU, got %s", got)
	}
	if !*reg.Properties.AdminUserEnabled {
		t.Error("expected admin user enabled")
	}
	if *reg.Tags["env"] != "dev" {
		t.Error("expected env tag to be carried through")
	}
}

func TestEnsureError(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	svc := newTestService(&fakeAPI{createErr: wantErr})

	if _, err := svc.Ensure(context.Background(), "rg", "myacr", "eastus", CreateOptions{}); !errors.Is(err, wantErr) {
		t.Errorf("expected create error to propagate, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{}
	svc := newTestService(api)

	if err := svc.Delete(context.Background(), "rg", "myacr"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "rg/myacr" {
		t.Errorf("unexpected deletions %v", api.deleted)
	}
}
