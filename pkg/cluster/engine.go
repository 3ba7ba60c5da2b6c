package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerservice/armcontainerservice/v5"
	"github.com/sirupsen/logrus"

	"go.goms.io/aks/AKSProvisioner/pkg/directory"
)

const (
	// retryInterval is the fixed sleep between submissions while the
	// resource manager catches up with a freshly created service principal.
	retryInterval = 5 * time.Second
	// maxAttempts caps total submissions; with the fixed interval this bounds
	// the retry loop to roughly 100 seconds of wall clock.
	maxAttempts = 20

	defaultVMSize        = "Standard_DS2_v2"
	defaultAdminUsername = "azureuser"
)

// ApplicationBroker supplies the directory application used when a cluster
// runs in the classic service principal identity mode. *directory.Broker
// satisfies it.
type ApplicationBroker interface {
	FindOrCreateApplication(ctx context.Context, candidate *directory.ApplicationCandidate, name, location string) (*directory.ApplicationCredential, error)
}

// CreateOptions controls a single cluster creation call.
type CreateOptions struct {
	// WaitForCompletion blocks until the asynchronous provisioning operation
	// reaches a terminal state instead of returning once the create request
	// is accepted.
	WaitForCompletion bool
}

// ProvisioningEngine drives the create-with-retry protocol for managed
// clusters: topology normalization, identity resolution, request assembly,
// and submission with retries over the directory-to-resource-manager
// visibility window.
type ProvisioningEngine struct {
	api    API
	broker ApplicationBroker
	logger *logrus.Logger

	retryInterval time.Duration
	maxAttempts   int
	sleep         func(time.Duration)
}

// NewProvisioningEngine creates an engine with the default retry policy.
func NewProvisioningEngine(api API, broker ApplicationBroker, logger *logrus.Logger) *ProvisioningEngine {
	return &ProvisioningEngine{
		api:           api,
		broker:        broker,
		logger:        logger,
		retryInterval: retryInterval,
		maxAttempts:   maxAttempts,
		sleep:         time.Sleep,
	}
}

// CreateCluster provisions a managed cluster from a specification and returns
// the created resource handle.
func (e *ProvisioningEngine) CreateCluster(ctx context.Context, spec *ClusterSpec, opts CreateOptions) (*armcontainerservice.ManagedCluster, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	pools, err := NormalizeTopology(spec.topology())
	if err != nil {
		return nil, err
	}

	mc := buildManagedCluster(spec, pools)

	if spec.ManagedIdentity {
		e.logger.Infof("Cluster %s will use a system-assigned managed identity", spec.Name)
		mc.Identity = &armcontainerservice.ManagedClusterIdentity{
			Type: to.Ptr(armcontainerservice.ResourceIdentityTypeSystemAssigned),
		}
	} else {
		cred, err := e.broker.FindOrCreateApplication(ctx, spec.ServicePrincipal, spec.Name, spec.Location)
		if err != nil {
			return nil, err
		}
		e.logger.Infof("Cluster %s will use service principal %s", spec.Name, cred.AppID)
		mc.Properties.ServicePrincipalProfile = &armcontainerservice.ManagedClusterServicePrincipalProfile{
			ClientID: to.Ptr(cred.AppID),
			Secret:   to.Ptr(cred.Secret),
		}
	}

	if len(spec.ExtraProperties) > 0 {
		mc, err = applyExtraProperties(mc, spec.ExtraProperties)
		if err != nil {
			return nil, err
		}
	}

	return e.submitWithRetry(ctx, spec.ResourceGroup, spec.Name, mc, opts)
}

// submitWithRetry submits the assembled request, retrying only when the
// resource manager has not yet seen the cluster's service principal. Every
// other failure is surfaced unmodified on first occurrence.
func (e *ProvisioningEngine) submitWithRetry(ctx context.Context, resourceGroup, name string, mc armcontainerservice.ManagedCluster, opts CreateOptions) (*armcontainerservice.ManagedCluster, error) {
	for attempt := 1; ; attempt++ {
		e.logger.Infof("Submitting managed cluster %s/%s (attempt %d/%d)", resourceGroup, name, attempt, e.maxAttempts)
		created, err := e.api.CreateOrUpdate(ctx, resourceGroup, name, mc, opts.WaitForCompletion)
		if err == nil {
			e.logger.Infof("✅ Managed cluster %s/%s created", resourceGroup, name)
			return created, nil
		}
		if !isServicePrincipalNotReady(err) {
			return nil, err
		}
		if attempt >= e.maxAttempts {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrProvisioningExhausted, attempt, err)
		}
		e.logger.Infof("Service principal not yet visible to the resource manager, retrying in %s", e.retryInterval)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.sleep(e.retryInterval)
	}
}

// isServicePrincipalNotReady reports whether an error indicates the cluster's
// service principal is not yet recognized by the resource manager, the
// eventual consistency window between directory application creation and
// control plane visibility. ARM exposes no structured code for this
// condition, so it is a case-insensitive textual marker check on the server
// message. Deployment failures reported after acceptance are never treated
// as transient.
func isServicePrincipalNotReady(err error) bool {
	var failed *ProvisioningFailedError
	if errors.As(err, &failed) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "service principal") || strings.Contains(msg, "serviceprincipal")
}

// buildManagedCluster assembles the request body from the normalized
// specification.
func buildManagedCluster(spec *ClusterSpec, pools []AgentPoolSpec) armcontainerservice.ManagedCluster {
	dnsPrefix := spec.DNSPrefix
	if dnsPrefix == "" {
		dnsPrefix = spec.Name
	}

	props := &armcontainerservice.ManagedClusterProperties{
		DNSPrefix:  to.Ptr(dnsPrefix),
		EnableRBAC: to.Ptr(spec.rbacEnabled()),
	}
	if spec.KubernetesVersion != "" {
		props.KubernetesVersion = to.Ptr(spec.KubernetesVersion)
	}
	if spec.PrivateCluster {
		props.APIServerAccessProfile = &armcontainerservice.ManagedClusterAPIServerAccessProfile{
			EnablePrivateCluster: to.Ptr(true),
		}
	}
	if spec.SSHPublicKey != "" {
		admin := spec.AdminUsername
		if admin == "" {
			admin = defaultAdminUsername
		}
		props.LinuxProfile = &armcontainerservice.LinuxProfile{
			AdminUsername: to.Ptr(admin),
			SSH: &armcontainerservice.SSHConfiguration{
				PublicKeys: []*armcontainerservice.SSHPublicKey{
					{KeyData: to.Ptr(spec.SSHPublicKey)},
				},
			},
		}
	}
	for _, pool := range pools {
		props.AgentPoolProfiles = append(props.AgentPoolProfiles, poolProfile(pool))
	}

	mc := armcontainerservice.ManagedCluster{
		Location:   to.Ptr(spec.Location),
		Properties: props,
	}
	if len(spec.Tags) > 0 {
		mc.Tags = map[string]*string{}
		for k, v := range spec.Tags {
			mc.Tags[k] = to.Ptr(v)
		}
	}
	return mc
}

func poolProfile(pool AgentPoolSpec) *armcontainerservice.ManagedClusterAgentPoolProfile {
	vmSize := pool.VMSize
	if vmSize == "" {
		vmSize = defaultVMSize
	}
	osType := pool.OSType
	if osType == "" {
		osType = string(armcontainerservice.OSTypeLinux)
	}
	mode := pool.Mode
	if mode == "" {
		mode = PoolModeUser
	}
	profile := &armcontainerservice.ManagedClusterAgentPoolProfile{
		Name:   to.Ptr(pool.Name),
		Count:  to.Ptr(pool.NodeCount),
		VMSize: to.Ptr(vmSize),
		OSType: to.Ptr(armcontainerservice.OSType(osType)),
		Mode:   to.Ptr(armcontainerservice.AgentPoolMode(mode)),
		Type:   to.Ptr(armcontainerservice.AgentPoolTypeVirtualMachineScaleSets),
	}
	if pool.OSDiskSizeGB > 0 {
		profile.OSDiskSizeGB = to.Ptr(pool.OSDiskSizeGB)
	}
	return profile
}

// applyExtraProperties deep-merges a caller-supplied overlay onto the
// computed request body, caller values winning on key conflicts. The typed
// request is round-tripped through its JSON form so the overlay can address
// any field the resource manager accepts.
func applyExtraProperties(mc armcontainerservice.ManagedCluster, extra map[string]any) (armcontainerservice.ManagedCluster, error) {
	raw, err := json.Marshal(mc)
	if err != nil {
		return mc, fmt.Errorf("failed to marshal cluster request body: %w", err)
	}
	base := map[string]any{}
	if err := json.Unmarshal(raw, &base); err != nil {
		return mc, fmt.Errorf("failed to decode cluster request body: %w", err)
	}
	if err := mergo.Merge(&base, extra, mergo.WithOverride); err != nil {
		return mc, fmt.Errorf("failed to merge extra properties: %w", err)
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return mc, fmt.Errorf("failed to marshal merged request body: %w", err)
	}
	out := armcontainerservice.ManagedCluster{}
	if err := json.Unmarshal(merged, &out); err != nil {
		return mc, fmt.Errorf("failed to apply extra properties: %w", err)
	}
	return out, nil
}
