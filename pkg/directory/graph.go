package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphapplications "github.com/microsoftgraph/msgraph-sdk-go/applications"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	graphserviceprincipals "github.com/microsoftgraph/msgraph-sdk-go/serviceprincipals"
)

// graphScopes is the default scope set for Microsoft Graph calls.
var graphScopes = []string{"https://graph.microsoft.com/.default"}

// GraphClient implements Client against the Microsoft Graph API.
type GraphClient struct {
	client *msgraphsdk.GraphServiceClient
}

// NewGraphClient creates a directory client backed by Microsoft Graph.
func NewGraphClient(cred azcore.TokenCredential) (*GraphClient, error) {
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, graphScopes)
	if err != nil {
		return nil, fmt.Errorf("failed to create Microsoft Graph client: %w", err)
	}
	return &GraphClient{client: client}, nil
}

// GetApplicationByAppID looks up an application registration by its client ID.
func (g *GraphClient) GetApplicationByAppID(ctx context.Context, appID string) (*Application, error) {
	filter := fmt.Sprintf("appId eq '%s'", appID)
	resp, err := g.client.Applications().Get(ctx, &graphapplications.ApplicationsRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphapplications.ApplicationsRequestBuilderGetQueryParameters{
			Filter: &filter,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query applications for appId %s: %w", appID, err)
	}
	apps := resp.GetValue()
	if len(apps) == 0 {
		return nil, fmt.Errorf("%w: appId %s", ErrApplicationNotFound, appID)
	}
	return applicationFromGraph(apps[0]), nil
}

// CreateApplication registers a new directory application.
func (g *GraphClient) CreateApplication(ctx context.Context, displayName string) (*Application, error) {
	app := graphmodels.NewApplication()
	app.SetDisplayName(&displayName)

	created, err := g.client.Applications().Post(ctx, app, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create application %q: %w", displayName, err)
	}
	return applicationFromGraph(created), nil
}

// AddPassword issues a new password credential on an application and returns
// the secret text. The secret text is only available in this response; Graph
// never returns it again.
func (g *GraphClient) AddPassword(ctx context.Context, appObjectID, displayName string, validFor time.Duration) (string, error) {
	credential := graphmodels.NewPasswordCredential()
	credential.SetDisplayName(&displayName)
	end := time.Now().UTC().Add(validFor)
	credential.SetEndDateTime(&end)

	body := graphapplications.NewItemAddPasswordPostRequestBody()
	body.SetPasswordCredential(credential)

	resp, err := g.client.Applications().ByApplicationId(appObjectID).AddPassword().Post(ctx, body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to add password to application %s: %w", appObjectID, err)
	}
	secret := resp.GetSecretText()
	if secret == nil || *secret == "" {
		return "", fmt.Errorf("graph returned an empty secret for application %s", appObjectID)
	}
	return *secret, nil
}

// CreateServicePrincipal creates the service principal for an application and
// returns its object ID.
func (g *GraphClient) CreateServicePrincipal(ctx context.Context, appID string) (string, error) {
	sp := graphmodels.NewServicePrincipal()
	sp.SetAppId(&appID)

	created, err := g.client.ServicePrincipals().Post(ctx, sp, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create service principal for appId %s: %w", appID, err)
	}
	if created.GetId() == nil {
		return "", fmt.Errorf("graph returned a service principal without an object ID for appId %s", appID)
	}
	return *created.GetId(), nil
}

// GetServicePrincipalByAppID returns the object ID of the service principal
// belonging to an application.
func (g *GraphClient) GetServicePrincipalByAppID(ctx context.Context, appID string) (string, error) {
	filter := fmt.Sprintf("appId eq '%s'", appID)
	resp, err := g.client.ServicePrincipals().Get(ctx, &graphserviceprincipals.ServicePrincipalsRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphserviceprincipals.ServicePrincipalsRequestBuilderGetQueryParameters{
			Filter: &filter,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to query service principals for appId %s: %w", appID, err)
	}
	sps := resp.GetValue()
	if len(sps) == 0 || sps[0].GetId() == nil {
		return "", fmt.Errorf("%w: no service principal for appId %s", ErrApplicationNotFound, appID)
	}
	return *sps[0].GetId(), nil
}

func applicationFromGraph(app graphmodels.Applicationable) *Application {
	out := &Application{}
	if v := app.GetAppId(); v != nil {
		out.AppID = *v
	}
	if v := app.GetId(); v != nil {
		out.ObjectID = *v
	}
	if v := app.GetDisplayName(); v != nil {
		out.DisplayName = *v
	}
	return out
}
