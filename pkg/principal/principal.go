// Package principal normalizes the heterogeneous principal shapes that role
// assignment calls accept (plain object IDs, directory applications, managed
// clusters) into the concrete security principal the authorization API needs.
package principal

import (
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"
)

// Principal is a resolved security principal. ObjectID returns the directory
// object ID used as the principalId of a role assignment.
type Principal interface {
	ObjectID() string
}

// ManagedIdentity is a platform-managed identity attached to a resource.
type ManagedIdentity struct {
	ID string
}

// ObjectID implements Principal.
func (m ManagedIdentity) ObjectID() string { return m.ID }

// Application is a directory-registered application identity. Secret is only
// populated when the caller supplied it; the directory never returns existing
// secret text.
type Application struct {
	AppID  string
	ID     string
	Secret string
}

// ObjectID implements Principal.
func (a Application) ObjectID() string { return a.ID }

// Ref is a reference to a principal in one of the shapes callers hand us.
// The type is sealed so Resolve can match variants exhaustively.
type Ref interface {
	ref()
}

// ObjectIDRef is a plain principal object ID. Resolution passes it through
// unchanged.
type ObjectIDRef struct {
	ID string
}

func (ObjectIDRef) ref() {}

// ApplicationRef references a directory application by client ID, optionally
// carrying its secret.
type ApplicationRef struct {
	AppID  string
	Secret string
}

func (ApplicationRef) ref() {}

// ClusterRef references a managed cluster whose effective identity should be
// used as the principal.
type ClusterRef struct {
	Cluster *armcontainerservice.ManagedCluster
}

func (ClusterRef) ref() {}
