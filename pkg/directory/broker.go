package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// defaultPropagationWait is how long the broker waits after creating a new
// application before handing it to callers. Directory writes take a moment to
// become readable; the resource manager's own visibility lag is handled by
// the provisioning retry loop, not here.
const defaultPropagationWait = 10 * time.Second

// Broker looks up or creates directory applications and issues their secrets.
// It is the only component that talks to the directory service.
type Broker struct {
	client Client
	logger *logrus.Logger

	propagationWait time.Duration
	sleep           func(time.Duration)
}

// NewBroker creates a credential broker on top of a directory client.
func NewBroker(client Client, logger *logrus.Logger) *Broker {
	return &Broker{
		client:          client,
		logger:          logger,
		propagationWait: defaultPropagationWait,
		sleep:           time.Sleep,
	}
}

// FindOrCreateApplication resolves a caller-supplied candidate into a usable
// application credential.
//
// A nil candidate creates a fresh application named after the target resource,
// issues its initial secret and service principal, and waits briefly for
// directory propagation. A candidate with only an AppID references an existing
// registration; since the directory never returns existing secret text, this
// fails with ErrMissingSecret. A candidate carrying both AppID and Secret is
// validated and returned.
func (b *Broker) FindOrCreateApplication(ctx context.Context, candidate *ApplicationCandidate, name, location string) (*ApplicationCredential, error) {
	if candidate == nil {
		return b.createApplication(ctx, name, location)
	}
	if candidate.AppID == "" {
		return nil, fmt.Errorf("application candidate has no appId")
	}

	app, err := b.client.GetApplicationByAppID(ctx, candidate.AppID)
	if err != nil {
		return nil, err
	}
	spObjectID, err := b.client.GetServicePrincipalByAppID(ctx, candidate.AppID)
	if err != nil {
		return nil, err
	}

	if candidate.Secret == "" {
		return nil, fmt.Errorf("%w: application %s (%s)", ErrMissingSecret, app.DisplayName, app.AppID)
	}

	return &ApplicationCredential{
		AppID:                    app.AppID,
		ObjectID:                 app.ObjectID,
		ServicePrincipalObjectID: spObjectID,
		Secret:                   candidate.Secret,
	}, nil
}

// RotateSecret issues a new secret on an application and returns it. The
// caller is responsible for applying it to whatever depends on the old one.
func (b *Broker) RotateSecret(ctx context.Context, appObjectID, displayName string, validFor time.Duration) (string, error) {
	if validFor <= 0 {
		validFor = DefaultSecretValidity
	}
	b.logger.Infof("Issuing new secret for application %s (valid for %s)", appObjectID, validFor)
	return b.client.AddPassword(ctx, appObjectID, displayName, validFor)
}

// LookupApplication returns the registration for a client ID.
func (b *Broker) LookupApplication(ctx context.Context, appID string) (*Application, error) {
	return b.client.GetApplicationByAppID(ctx, appID)
}

// LookupServicePrincipal returns the service principal object ID for a client ID.
func (b *Broker) LookupServicePrincipal(ctx context.Context, appID string) (string, error) {
	return b.client.GetServicePrincipalByAppID(ctx, appID)
}

func (b *Broker) createApplication(ctx context.Context, name, location string) (*ApplicationCredential, error) {
	displayName := fmt.Sprintf("aksprov-%s-%s", name, location)
	b.logger.Infof("Creating directory application %q", displayName)

	app, err := b.client.CreateApplication(ctx, displayName)
	if err != nil {
		return nil, err
	}

	secret, err := b.client.AddPassword(ctx, app.ObjectID, displayName, DefaultSecretValidity)
	if err != nil {
		return nil, err
	}

	spObjectID, err := b.client.CreateServicePrincipal(ctx, app.AppID)
	if err != nil {
		return nil, err
	}

	b.logger.Infof("Waiting %s for directory propagation of application %s", b.propagationWait, app.AppID)
	b.sleep(b.propagationWait)

	return &ApplicationCredential{
		AppID:                    app.AppID,
		ObjectID:                 app.ObjectID,
		ServicePrincipalObjectID: spObjectID,
		Secret:                   secret,
	}, nil
}
