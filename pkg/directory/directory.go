package directory

import (
	"context"
	"errors"
	"time"
)

// DefaultSecretValidity is the validity window for newly issued application
// secrets when the caller does not provide one.
const DefaultSecretValidity = 2 * 365 * 24 * time.Hour

var (
	// ErrMissingSecret indicates an application was supplied without a
	// retrievable secret. A cluster cannot use the classic service principal
	// identity mode without one.
	ErrMissingSecret = errors.New("application has no retrievable secret")

	// ErrApplicationNotFound indicates no directory application matches the
	// requested client ID.
	ErrApplicationNotFound = errors.New("directory application not found")
)

// Application is a directory application registration.
type Application struct {
	AppID       string // client ID
	ObjectID    string // application object ID
	DisplayName string
}

// ApplicationCredential is an application together with a usable secret and
// the object ID of its service principal, ready to be embedded in a cluster
// service principal profile or used as a role assignment principal.
type ApplicationCredential struct {
	AppID                    string
	ObjectID                 string
	ServicePrincipalObjectID string
	Secret                   string
}

// ApplicationCandidate is a caller-supplied hint for FindOrCreateApplication.
// A nil candidate means "create a fresh application". AppID alone references
// an existing registration; AppID plus Secret is used as-is after validation.
type ApplicationCandidate struct {
	AppID  string `json:"appId" yaml:"appId"`
	Secret string `json:"secret" yaml:"secret"`
}

// Client is the subset of directory service operations the broker needs.
// It exists to keep the Microsoft Graph surface out of the callers and to
// allow lightweight mocking in unit tests.
type Client interface {
	GetApplicationByAppID(ctx context.Context, appID string) (*Application, error)
	CreateApplication(ctx context.Context, displayName string) (*Application, error)
	AddPassword(ctx context.Context, appObjectID, displayName string, validFor time.Duration) (string, error)
	CreateServicePrincipal(ctx context.Context, appID string) (string, error)
	GetServicePrincipalByAppID(ctx context.Context, appID string) (string, error)
}
