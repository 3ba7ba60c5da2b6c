package rbac

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v3"
	"github.com/sirupsen/logrus"

	"go.goms.io/aks/AKSProvisioner/pkg/principal"
)

func ptr[T any](v T) *T { return &v }

type fakeResolver struct {
	principal principal.Principal
	err       error
	calls     int
}

func (f *fakeResolver) Resolve(ctx context.Context, ref principal.Ref) (principal.Principal, error) {
	f.calls++
	return f.principal, f.err
}

type fakeDefinitions struct {
	definitions []*armauthorization.RoleDefinition
}

func (f *fakeDefinitions) NewListPager(scope string, options *armauthorization.RoleDefinitionsClientListOptions) *runtime.Pager[armauthorization.RoleDefinitionsClientListResponse] {
	done := false
	return runtime.NewPager(runtime.PagingHandler[armauthorization.RoleDefinitionsClientListResponse]{
		More: func(armauthorization.RoleDefinitionsClientListResponse) bool { return !done },
		Fetcher: func(ctx context.Context, _ *armauthorization.RoleDefinitionsClientListResponse) (armauthorization.RoleDefinitionsClientListResponse, error) {
			done = true
			return armauthorization.RoleDefinitionsClientListResponse{
				RoleDefinitionListResult: armauthorization.RoleDefinitionListResult{Value: f.definitions},
			}, nil
		},
	})
}

type fakeAssignments struct {
	createErr error
	created   []armauthorization.RoleAssignmentCreateParameters
	lastScope string
	lastName  string
}

func (f *fakeAssignments) Create(ctx context.Context, scope, roleAssignmentName string, parameters armauthorization.RoleAssignmentCreateParameters, options *armauthorization.RoleAssignmentsClientCreateOptions) (armauthorization.RoleAssignmentsClientCreateResponse, error) {
	f.lastScope = scope
	f.lastName = roleAssignmentName
	if f.createErr != nil {
		return armauthorization.RoleAssignmentsClientCreateResponse{}, f.createErr
	}
	f.created = append(f.created, parameters)
	return armauthorization.RoleAssignmentsClientCreateResponse{
		RoleAssignment: armauthorization.RoleAssignment{Properties: parameters.Properties},
	}, nil
}

func (f *fakeAssignments) NewListForScopePager(scope string, options *armauthorization.RoleAssignmentsClientListForScopeOptions) *runtime.Pager[armauthorization.RoleAssignmentsClientListForScopeResponse] {
	done := false
	return runtime.NewPager(runtime.PagingHandler[armauthorization.RoleAssignmentsClientListForScopeResponse]{
		More: func(armauthorization.RoleAssignmentsClientListForScopeResponse) bool { return !done },
		Fetcher: func(ctx context.Context, _ *armauthorization.RoleAssignmentsClientListForScopeResponse) (armauthorization.RoleAssignmentsClientListForScopeResponse, error) {
			done = true
			return armauthorization.RoleAssignmentsClientListForScopeResponse{}, nil
		},
	})
}

func newTestOrchestrator(resolver principalResolver, assignments roleAssignmentsClient, definitions roleDefinitionsClient) *Orchestrator {
	o := newOrchestrator("sub-1", resolver, definitions, assignments, logrus.New())
	o.newName = func() string { return "fixed-assignment-name" }
	return o
}

const acrScope = "/subscriptions/sub-1/resourceGroups/rg1/providers/Microsoft.ContainerRegistry/registries/reg1"

func TestGrant_PlainObjectIDSkipsResolution(t *testing.T) {
	resolver := &fakeResolver{}
	assignments := &fakeAssignments{}
	o := newTestOrchestrator(resolver, assignments, &fakeDefinitions{})

	got, err := o.Grant(context.Background(), acrScope, "AcrPull", principal.ObjectIDRef{ID: "object-7"})
	if err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if resolver.calls != 0 {
		t.Fatalf("expected no resolver calls for a plain identifier, got %d", resolver.calls)
	}
	if *got.Properties.PrincipalID != "object-7" {
		t.Fatalf("principal ID must be delegated unchanged, got %q", *got.Properties.PrincipalID)
	}
	if !strings.HasSuffix(*got.Properties.RoleDefinitionID, "/roleDefinitions/7f951dda-4ed3-4680-a7ca-43fe172d538d") {
		t.Fatalf("unexpected role definition: %q", *got.Properties.RoleDefinitionID)
	}
}

func TestGrant_ClusterRefResolvesOnce(t *testing.T) {
	resolver := &fakeResolver{principal: principal.ManagedIdentity{ID: "kubelet-object"}}
	assignments := &fakeAssignments{}
	o := newTestOrchestrator(resolver, assignments, &fakeDefinitions{})

	got, err := o.Grant(context.Background(), acrScope, "AcrPull", principal.ClusterRef{})
	if err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected exactly one resolution, got %d", resolver.calls)
	}
	if *got.Properties.PrincipalID != "kubelet-object" {
		t.Fatalf("expected resolved principal, got %q", *got.Properties.PrincipalID)
	}
}

func TestGrant_CustomRoleLooksUpDefinition(t *testing.T) {
	definitions := &fakeDefinitions{definitions: []*armauthorization.RoleDefinition{{
		ID:         ptr("/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/custom-id"),
		Properties: &armauthorization.RoleDefinitionProperties{RoleName: ptr("Custom Deployer")},
	}}}
	o := newTestOrchestrator(&fakeResolver{}, &fakeAssignments{}, definitions)

	got, err := o.Grant(context.Background(), acrScope, "Custom Deployer", principal.ObjectIDRef{ID: "p"})
	if err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if !strings.HasSuffix(*got.Properties.RoleDefinitionID, "custom-id") {
		t.Fatalf("unexpected role definition: %q", *got.Properties.RoleDefinitionID)
	}
}

func TestGrant_UnknownRole(t *testing.T) {
	o := newTestOrchestrator(&fakeResolver{}, &fakeAssignments{}, &fakeDefinitions{})

	_, err := o.Grant(context.Background(), acrScope, "No Such Role", principal.ObjectIDRef{ID: "p"})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestGrant_AuthorizationFailurePropagatesVerbatim(t *testing.T) {
	authErr := errors.New(`RESPONSE 403: AuthorizationFailed: the client does not have authorization`)
	o := newTestOrchestrator(&fakeResolver{}, &fakeAssignments{createErr: authErr}, &fakeDefinitions{})

	_, err := o.Grant(context.Background(), acrScope, "Reader", principal.ObjectIDRef{ID: "p"})
	if !errors.Is(err, authErr) {
		t.Fatalf("expected the authorization error unmodified, got %v", err)
	}
}

func TestGrant_ExistingAssignmentIsIdempotent(t *testing.T) {
	existsErr := errors.New(`RESPONSE 409: {"error":{"code":"RoleAssignmentExists","message":"The role assignment already exists."}}`)
	o := newTestOrchestrator(&fakeResolver{}, &fakeAssignments{createErr: existsErr}, &fakeDefinitions{})

	got, err := o.Grant(context.Background(), acrScope, "Reader", principal.ObjectIDRef{ID: "p"})
	if err != nil {
		t.Fatalf("expected idempotent success, got %v", err)
	}
	if *got.Properties.PrincipalID != "p" {
		t.Fatalf("unexpected assignment: %+v", got)
	}
}
