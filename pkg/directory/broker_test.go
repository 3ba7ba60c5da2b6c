package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeDirectoryClient struct {
	apps map[string]*Application // by appId
	sps  map[string]string       // appId -> sp object id

	createdApps    int
	addedPasswords int
	createdSPs     int

	secret string
	err    error
}

func (f *fakeDirectoryClient) GetApplicationByAppID(ctx context.Context, appID string) (*Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	app, ok := f.apps[appID]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	return app, nil
}

func (f *fakeDirectoryClient) CreateApplication(ctx context.Context, displayName string) (*Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdApps++
	app := &Application{AppID: "new-app-id", ObjectID: "new-object-id", DisplayName: displayName}
	if f.apps == nil {
		f.apps = map[string]*Application{}
	}
	f.apps[app.AppID] = app
	return app, nil
}

func (f *fakeDirectoryClient) AddPassword(ctx context.Context, appObjectID, displayName string, validFor time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.addedPasswords++
	if f.secret == "" {
		return "generated-secret", nil
	}
	return f.secret, nil
}

func (f *fakeDirectoryClient) CreateServicePrincipal(ctx context.Context, appID string) (string, error) {
	f.createdSPs++
	return "new-sp-object-id", nil
}

func (f *fakeDirectoryClient) GetServicePrincipalByAppID(ctx context.Context, appID string) (string, error) {
	sp, ok := f.sps[appID]
	if !ok {
		return "", ErrApplicationNotFound
	}
	return sp, nil
}

func newTestBroker(client Client) *Broker {
	b := NewBroker(client, logrus.New())
	b.sleep = func(time.Duration) {}
	return b
}

func TestFindOrCreateApplication_NilCandidateCreates(t *testing.T) {
	client := &fakeDirectoryClient{}
	broker := newTestBroker(client)

	cred, err := broker.FindOrCreateApplication(context.Background(), nil, "mycluster", "eastus")
	if err != nil {
		t.Fatalf("FindOrCreateApplication() error = %v", err)
	}
	if client.createdApps != 1 || client.addedPasswords != 1 || client.createdSPs != 1 {
		t.Fatalf("expected app+password+sp creation, got apps=%d passwords=%d sps=%d",
			client.createdApps, client.addedPasswords, client.createdSPs)
	}
	if cred.AppID != "new-app-id" || cred.Secret != "generated-secret" || cred.ServicePrincipalObjectID != "new-sp-object-id" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if client.apps["new-app-id"].DisplayName != "aksprov-mycluster-eastus" {
		t.Fatalf("unexpected display name: %q", client.apps["new-app-id"].DisplayName)
	}
}

func TestFindOrCreateApplication_ExistingWithSecret(t *testing.T) {
	client := &fakeDirectoryClient{
		apps: map[string]*Application{"app-1": {AppID: "app-1", ObjectID: "obj-1", DisplayName: "existing"}},
		sps:  map[string]string{"app-1": "sp-1"},
	}
	broker := newTestBroker(client)

	cred, err := broker.FindOrCreateApplication(context.Background(), &ApplicationCandidate{AppID: "app-1", Secret: "s3cret"}, "c", "eastus")
	if err != nil {
		t.Fatalf("FindOrCreateApplication() error = %v", err)
	}
	if cred.AppID != "app-1" || cred.ObjectID != "obj-1" || cred.ServicePrincipalObjectID != "sp-1" || cred.Secret != "s3cret" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if client.createdApps != 0 {
		t.Fatalf("expected no application creation, got %d", client.createdApps)
	}
}

func TestFindOrCreateApplication_ExistingWithoutSecret(t *testing.T) {
	client := &fakeDirectoryClient{
		apps: map[string]*Application{"app-1": {AppID: "app-1", ObjectID: "obj-1"}},
		sps:  map[string]string{"app-1": "sp-1"},
	}
	broker := newTestBroker(client)

	_, err := broker.FindOrCreateApplication(context.Background(), &ApplicationCandidate{AppID: "app-1"}, "c", "eastus")
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestFindOrCreateApplication_UnknownAppID(t *testing.T) {
	broker := newTestBroker(&fakeDirectoryClient{})

	_, err := broker.FindOrCreateApplication(context.Background(), &ApplicationCandidate{AppID: "nope", Secret: "s"}, "c", "eastus")
	if !errors.Is(err, ErrApplicationNotFound) {
		t.Fatalf("expected ErrApplicationNotFound, got %v", err)
	}
}

func TestRotateSecret_DefaultsValidity(t *testing.T) {
	client := &fakeDirectoryClient{secret: "rotated"}
	broker := newTestBroker(client)

	secret, err := broker.RotateSecret(context.Background(), "obj-1", "mycluster", 0)
	if err != nil {
		t.Fatalf("RotateSecret() error = %v", err)
	}
	if secret != "rotated" {
		t.Fatalf("expected rotated secret, got %q", secret)
	}
	if client.addedPasswords != 1 {
		t.Fatalf("expected 1 AddPassword call, got %d", client.addedPasswords)
	}
}
