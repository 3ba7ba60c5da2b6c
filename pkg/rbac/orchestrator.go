// Package rbac grants roles on scoped resources to security principals,
// resolving cluster references into concrete principals first.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go.goms.io/aks/AKSProvisioner/pkg/paging"
	"go.goms.io/aks/AKSProvisioner/pkg/principal"
)

// ErrUnknownRole indicates a role name that is neither built in nor defined
// at the requested scope.
var ErrUnknownRole = errors.New("unknown role name")

// principalResolver is satisfied by *principal.Resolver.
type principalResolver interface {
	Resolve(ctx context.Context, ref principal.Ref) (principal.Principal, error)
}

// roleDefinitionsClient is the subset of the SDK role definitions client the
// orchestrator needs.
type roleDefinitionsClient interface {
	NewListPager(scope string, options *armauthorization.RoleDefinitionsClientListOptions) *runtime.Pager[armauthorization.RoleDefinitionsClientListResponse]
}

// roleAssignmentsClient is the subset of the SDK role assignments client the
// orchestrator needs.
type roleAssignmentsClient interface {
	Create(ctx context.Context, scope, roleAssignmentName string, parameters armauthorization.RoleAssignmentCreateParameters, options *armauthorization.RoleAssignmentsClientCreateOptions) (armauthorization.RoleAssignmentsClientCreateResponse, error)
	NewListForScopePager(scope string, options *armauthorization.RoleAssignmentsClientListForScopeOptions) *runtime.Pager[armauthorization.RoleAssignmentsClientListForScopeResponse]
}

// Orchestrator translates "grant role R on resource X to principal P" into a
// resolved-principal role assignment call. Authorization failures are never
// retried; the server diagnostic is surfaced as-is.
type Orchestrator struct {
	resolver    principalResolver
	definitions roleDefinitionsClient
	assignments roleAssignmentsClient
	logger      *logrus.Logger

	subscriptionID string
	newName        func() string
}

// NewOrchestrator creates the SDK clients for a subscription and wires them
// to the resolver.
func NewOrchestrator(subscriptionID string, cred azcore.TokenCredential, resolver *principal.Resolver, logger *logrus.Logger) (*Orchestrator, error) {
	assignments, err := armauthorization.NewRoleAssignmentsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create role assignments client: %w", err)
	}
	definitions, err := armauthorization.NewRoleDefinitionsClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create role definitions client: %w", err)
	}
	return newOrchestrator(subscriptionID, resolver, definitions, assignments, logger), nil
}

func newOrchestrator(subscriptionID string, resolver principalResolver, definitions roleDefinitionsClient, assignments roleAssignmentsClient, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		resolver:       resolver,
		definitions:    definitions,
		assignments:    assignments,
		logger:         logger,
		subscriptionID: subscriptionID,
		newName:        func() string { return uuid.New().String() },
	}
}

// Grant assigns a role on a scope to a principal reference. A plain object ID
// is delegated unchanged; every other reference is resolved exactly once
// before delegation.
func (o *Orchestrator) Grant(ctx context.Context, scope, roleName string, ref principal.Ref) (*armauthorization.RoleAssignment, error) {
	var principalID string
	switch v := ref.(type) {
	case principal.ObjectIDRef:
		principalID = v.ID
	default:
		resolved, err := o.resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		principalID = resolved.ObjectID()
	}

	roleDefinitionID, err := o.resolveRoleDefinition(ctx, scope, roleName)
	if err != nil {
		return nil, err
	}

	assignmentName := o.newName()
	o.logger.Infof("Assigning role %q to principal %s on %s", roleName, principalID, scope)
	resp, err := o.assignments.Create(ctx, scope, assignmentName, armauthorization.RoleAssignmentCreateParameters{
		Properties: &armauthorization.RoleAssignmentProperties{
			PrincipalID:      to.Ptr(principalID),
			RoleDefinitionID: to.Ptr(roleDefinitionID),
		},
	}, nil)
	if err != nil {
		if strings.Contains(err.Error(), "RoleAssignmentExists") {
			// Re-assigning is idempotent at the authorization layer.
			o.logger.Infof("Role %q already assigned to principal %s on %s", roleName, principalID, scope)
			return &armauthorization.RoleAssignment{
				Properties: &armauthorization.RoleAssignmentProperties{
					PrincipalID:      to.Ptr(principalID),
					RoleDefinitionID: to.Ptr(roleDefinitionID),
					Scope:            to.Ptr(scope),
				},
			}, nil
		}
		return nil, err
	}
	return &resp.RoleAssignment, nil
}

// ListForScope returns every role assignment visible at a scope.
func (o *Orchestrator) ListForScope(ctx context.Context, scope string) ([]*armauthorization.RoleAssignment, error) {
	pager := o.assignments.NewListForScopePager(scope, nil)
	return paging.Collect(ctx, pager, func(page armauthorization.RoleAssignmentsClientListForScopeResponse) []*armauthorization.RoleAssignment {
		return page.Value
	})
}

// resolveRoleDefinition turns a role name into a full role definition ID,
// preferring the built-in table and falling back to a scope-filtered
// role-definitions listing.
func (o *Orchestrator) resolveRoleDefinition(ctx context.Context, scope, roleName string) (string, error) {
	if id, ok := builtinRoleDefinitionIDs[roleName]; ok {
		return fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s", o.subscriptionID, id), nil
	}

	filter := fmt.Sprintf("roleName eq '%s'", roleName)
	pager := o.definitions.NewListPager(scope, &armauthorization.RoleDefinitionsClientListOptions{Filter: &filter})
	definitions, err := paging.Collect(ctx, pager, func(page armauthorization.RoleDefinitionsClientListResponse) []*armauthorization.RoleDefinition {
		return page.Value
	})
	if err != nil {
		return "", fmt.Errorf("failed to list role definitions for scope %s: %w", scope, err)
	}
	for _, def := range definitions {
		if def.Properties != nil && def.Properties.RoleName != nil && *def.Properties.RoleName == roleName && def.ID != nil {
			return *def.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q at scope %s", ErrUnknownRole, roleName, scope)
}
