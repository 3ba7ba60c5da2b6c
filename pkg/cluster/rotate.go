package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"
	"github.com/sirupsen/logrus"

	"go.goms.io/aks/AKSProvisioner/pkg/directory"
)

// RotationKind identifies which of a cluster's identities gets a new secret.
type RotationKind string

const (
	// RotationAAD rotates the directory-integration server application secret.
	RotationAAD RotationKind = "aad"
	// RotationClusterManagement rotates the service principal the cluster
	// uses to manage its subsidiary infrastructure. A no-op for managed
	// identity clusters.
	RotationClusterManagement RotationKind = "cluster-management"
)

// RotateOptions tunes a rotation call.
type RotateOptions struct {
	// DisplayName labels the new password credential; defaults to the
	// application's display name.
	DisplayName string
	// Validity of the new secret; defaults to the broker's long window.
	Validity time.Duration
}

// DirectoryRotator is the directory capability the rotator needs.
// *directory.Broker satisfies it.
type DirectoryRotator interface {
	LookupApplication(ctx context.Context, appID string) (*directory.Application, error)
	RotateSecret(ctx context.Context, appObjectID, displayName string, validFor time.Duration) (string, error)
}

// CredentialRotator regenerates secrets for the identities attached to an
// existing cluster and re-applies them to the cluster resource.
type CredentialRotator struct {
	api       API
	directory DirectoryRotator
	logger    *logrus.Logger
}

// NewCredentialRotator creates a rotator.
func NewCredentialRotator(api API, directory DirectoryRotator, logger *logrus.Logger) *CredentialRotator {
	return &CredentialRotator{api: api, directory: directory, logger: logger}
}

// Rotate issues a new secret for the selected identity and applies it to the
// cluster. It returns the new secret value; the secret is never logged.
func (r *CredentialRotator) Rotate(ctx context.Context, resourceGroup, clusterName string, kind RotationKind, opts RotateOptions) (string, error) {
	mc, err := r.api.Get(ctx, resourceGroup, clusterName)
	if err != nil {
		return "", err
	}

	switch kind {
	case RotationClusterManagement:
		return r.rotateClusterManagement(ctx, resourceGroup, clusterName, mc, opts)
	case RotationAAD:
		return r.rotateAAD(ctx, resourceGroup, clusterName, mc, opts)
	default:
		return "", fmt.Errorf("unknown rotation kind %q", kind)
	}
}

func (r *CredentialRotator) rotateClusterManagement(ctx context.Context, resourceGroup, clusterName string, mc *armcontainerservice.ManagedCluster, opts RotateOptions) (string, error) {
	if mc.Identity != nil {
		r.logger.Infof("Cluster %s uses a managed identity; nothing to rotate", clusterName)
		return "", nil
	}
	if mc.Properties == nil || mc.Properties.ServicePrincipalProfile == nil ||
		mc.Properties.ServicePrincipalProfile.ClientID == nil || *mc.Properties.ServicePrincipalProfile.ClientID == "" {
		return "", fmt.Errorf("cluster %s has no service principal profile to rotate", clusterName)
	}
	clientID := *mc.Properties.ServicePrincipalProfile.ClientID

	secret, err := r.issueSecret(ctx, clientID, opts)
	if err != nil {
		return "", err
	}

	r.logger.Infof("Applying rotated service principal secret to cluster %s/%s", resourceGroup, clusterName)
	profile := armcontainerservice.ManagedClusterServicePrincipalProfile{
		ClientID: to.Ptr(clientID),
		Secret:   to.Ptr(secret),
	}
	if err := r.api.ResetServicePrincipalProfile(ctx, resourceGroup, clusterName, profile); err != nil {
		return "", err
	}
	return secret, nil
}

func (r *CredentialRotator) rotateAAD(ctx context.Context, resourceGroup, clusterName string, mc *armcontainerservice.ManagedCluster, opts RotateOptions) (string, error) {
	if mc.Properties == nil || mc.Properties.AADProfile == nil {
		return "", fmt.Errorf("cluster %s has no AAD profile to rotate", clusterName)
	}
	aad := mc.Properties.AADProfile
	if aad.Managed != nil && *aad.Managed {
		return "", fmt.Errorf("cluster %s uses managed AAD integration; there is no rotatable server application secret", clusterName)
	}
	if aad.ServerAppID == nil || *aad.ServerAppID == "" {
		return "", fmt.Errorf("cluster %s AAD profile has no server application", clusterName)
	}

	secret, err := r.issueSecret(ctx, *aad.ServerAppID, opts)
	if err != nil {
		return "", err
	}

	r.logger.Infof("Applying rotated AAD server application secret to cluster %s/%s", resourceGroup, clusterName)
	updated := *aad
	updated.ServerAppSecret = to.Ptr(secret)
	if err := r.api.ResetAADProfile(ctx, resourceGroup, clusterName, updated); err != nil {
		return "", err
	}
	return secret, nil
}

// issueSecret resolves the application for a client ID and rotates its secret.
func (r *CredentialRotator) issueSecret(ctx context.Context, clientID string, opts RotateOptions) (string, error) {
	app, err := r.directory.LookupApplication(ctx, clientID)
	if err != nil {
		return "", err
	}
	displayName := opts.DisplayName
	if displayName == "" {
		displayName = app.DisplayName
	}
	return r.directory.RotateSecret(ctx, app.ObjectID, displayName, opts.Validity)
}
