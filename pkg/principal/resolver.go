package principal

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"
	"github.com/Azure/go-autorest/autorest/to"
)

// ErrPrincipalResolution indicates a cluster resource exposes neither a
// populated identity profile nor a service principal profile, so no principal
// can be derived from it.
var ErrPrincipalResolution = errors.New("cannot resolve a security principal")

// DirectoryLookup is the directory capability Resolve needs for clusters that
// run with a classic service principal. *directory.Broker satisfies it.
type DirectoryLookup interface {
	LookupServicePrincipal(ctx context.Context, appID string) (string, error)
}

// Resolver turns principal references into resolved principals. Resolution of
// a cluster reference performs at most one directory lookup and no other
// network I/O.
type Resolver struct {
	directory DirectoryLookup
}

// NewResolver creates a resolver using the given directory lookup.
func NewResolver(directory DirectoryLookup) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve normalizes a reference into a concrete principal.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (Principal, error) {
	switch v := ref.(type) {
	case ObjectIDRef:
		return ManagedIdentity{ID: v.ID}, nil
	case ApplicationRef:
		spObjectID, err := r.directory.LookupServicePrincipal(ctx, v.AppID)
		if err != nil {
			return nil, err
		}
		return Application{AppID: v.AppID, ID: spObjectID, Secret: v.Secret}, nil
	case ClusterRef:
		return r.resolveCluster(ctx, v)
	case nil:
		return nil, fmt.Errorf("%w: nil principal reference", ErrPrincipalResolution)
	default:
		return nil, fmt.Errorf("%w: unrecognized principal reference %T", ErrPrincipalResolution, ref)
	}
}

// resolveCluster derives the principal that manages a cluster's subsidiary
// infrastructure. Managed identity clusters resolve from the identity
// profile's first entry; service principal clusters resolve through a single
// directory lookup on the profile's client ID.
func (r *Resolver) resolveCluster(ctx context.Context, ref ClusterRef) (Principal, error) {
	mc := ref.Cluster
	if mc == nil {
		return nil, fmt.Errorf("%w: nil cluster resource", ErrPrincipalResolution)
	}
	name := to.String(mc.Name)

	if mc.Identity != nil {
		if objectID := firstIdentityObjectID(mc); objectID != "" {
			return ManagedIdentity{ID: objectID}, nil
		}
		if mc.Identity.PrincipalID != nil && *mc.Identity.PrincipalID != "" {
			return ManagedIdentity{ID: *mc.Identity.PrincipalID}, nil
		}
		return nil, fmt.Errorf("%w: cluster %s uses managed identity but exposes no identity object ID", ErrPrincipalResolution, name)
	}

	if mc.Properties != nil && mc.Properties.ServicePrincipalProfile != nil &&
		mc.Properties.ServicePrincipalProfile.ClientID != nil && *mc.Properties.ServicePrincipalProfile.ClientID != "" {
		clientID := *mc.Properties.ServicePrincipalProfile.ClientID
		spObjectID, err := r.directory.LookupServicePrincipal(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up service principal %s for cluster %s: %w", clientID, name, err)
		}
		return Application{AppID: clientID, ID: spObjectID}, nil
	}

	return nil, fmt.Errorf("%w: cluster %s has neither an identity profile nor a service principal profile", ErrPrincipalResolution, name)
}

// firstIdentityObjectID returns the object ID of the first identity profile
// entry. The kubelet identity is preferred; remaining entries are consulted
// in stable key order.
func firstIdentityObjectID(mc *armcontainerservice.ManagedCluster) string {
	if mc.Properties == nil || len(mc.Properties.IdentityProfile) == 0 {
		return ""
	}
	if entry, ok := mc.Properties.IdentityProfile["kubeletidentity"]; ok && entry != nil && entry.ObjectID != nil {
		return *entry.ObjectID
	}
	keys := make([]string, 0, len(mc.Properties.IdentityProfile))
	for k := range mc.Properties.IdentityProfile {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if entry := mc.Properties.IdentityProfile[k]; entry != nil && entry.ObjectID != nil {
			return *entry.ObjectID
		}
	}
	return ""
}
