package main

import (
	"context"
	"fmt"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.goms.io/aks/AKSProvisioner/pkg/auth"
	"go.goms.io/aks/AKSProvisioner/pkg/cluster"
	"go.goms.io/aks/AKSProvisioner/pkg/config"
	"go.goms.io/aks/AKSProvisioner/pkg/directory"
	"go.goms.io/aks/AKSProvisioner/pkg/logger"
	"go.goms.io/aks/AKSProvisioner/pkg/principal"
	"go.goms.io/aks/AKSProvisioner/pkg/rbac"
	"go.goms.io/aks/AKSProvisioner/pkg/registry"
)

// Version information variables (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// services bundles the wired-up clients every command needs.
type services struct {
	cfg      *config.Config
	logger   *logrus.Logger
	clusters *cluster.ARMClient
	engine   *cluster.ProvisioningEngine
	rotator  *cluster.CredentialRotator
	pools    *cluster.AgentPoolService
	rbac     *rbac.Orchestrator
	registry *registry.Service
}

// buildServices constructs the credential and every downstream client from the
// loaded configuration.
func buildServices(ctx context.Context) (*services, error) {
	log := logger.GetLoggerFromContext(ctx)

	cfg := config.GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration has not been loaded")
	}

	cred, err := auth.NewAuthProvider().UserCredential(ctx, cfg)
	if err != nil {
		return nil, err
	}

	graph, err := directory.NewGraphClient(cred)
	if err != nil {
		return nil, err
	}
	broker := directory.NewBroker(graph, log)

	clusters, err := cluster.NewARMClient(cfg.GetSubscriptionID(), cred)
	if err != nil {
		return nil, err
	}

	resolver := principal.NewResolver(broker)
	orchestrator, err := rbac.NewOrchestrator(cfg.GetSubscriptionID(), cred, resolver, log)
	if err != nil {
		return nil, err
	}

	registryARM, err := registry.NewARMClient(cfg.GetSubscriptionID(), cred)
	if err != nil {
		return nil, err
	}

	return &services{
		cfg:      cfg,
		logger:   log,
		clusters: clusters,
		engine:   cluster.NewProvisioningEngine(clusters, broker, log),
		rotator:  cluster.NewCredentialRotator(clusters, broker, log),
		pools:    cluster.NewAgentPoolService(clusters.AgentPools(), log),
		rbac:     orchestrator,
		registry: registry.NewService(registryARM, log),
	}, nil
}

// resourceGroupOrDefault falls back to the configured default resource group.
func resourceGroupOrDefault(svc *services, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if rg := svc.cfg.GetResourceGroup(); rg != "" {
		return rg, nil
	}
	return "", fmt.Errorf("no resource group specified and azure.resourceGroup is not configured")
}

// NewProvisionCommand creates the provision command
func NewProvisionCommand() *cobra.Command {
	var (
		specPath     string
		noWait       bool
		registryName string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a managed cluster from a spec file",
		Long:  "Create a managed cluster from a YAML spec, optionally with a container registry the cluster can pull from",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd.Context(), specPath, noWait, registryName)
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Path to cluster spec YAML file (required)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return as soon as the create request is accepted")
	cmd.Flags().StringVar(&registryName, "registry", "", "Also create this container registry and grant the cluster pull access")
	_ = cmd.MarkFlagRequired("spec")

	return cmd
}

// runProvision creates the cluster and, when requested, the registry plus the
// AcrPull assignment that lets the cluster pull from it.
func runProvision(ctx context.Context, specPath string, noWait bool, registryName string) error {
	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}

	spec, err := cluster.LoadClusterSpec(specPath)
	if err != nil {
		return err
	}
	applyClusterDefaults(spec, svc.cfg)

	mc, err := svc.engine.CreateCluster(ctx, spec, cluster.CreateOptions{WaitForCompletion: !noWait})
	if err != nil {
		return err
	}

	if registryName == "" {
		return nil
	}
	if noWait {
		return fmt.Errorf("cluster %s is still provisioning; registry setup requires a completed cluster, rerun without --no-wait", spec.Name)
	}

	reg, err := svc.registry.Ensure(ctx, spec.ResourceGroup, registryName, spec.Location, registry.CreateOptions{
		SKU:  svc.cfg.GetRegistrySKU(),
		Tags: spec.Tags,
	})
	if err != nil {
		return err
	}
	if reg.ID == nil {
		return fmt.Errorf("registry %s was created without a resource ID", registryName)
	}

	if _, err := svc.rbac.Grant(ctx, *reg.ID, "AcrPull", principal.ClusterRef{Cluster: mc}); err != nil {
		return fmt.Errorf("cluster and registry created but pull access grant failed: %w", err)
	}

	svc.logger.Infof("✅ Cluster %s can now pull from registry %s", spec.Name, registryName)
	return nil
}

// applyClusterDefaults fills spec fields left empty from the configured
// cluster defaults.
func applyClusterDefaults(spec *cluster.ClusterSpec, cfg *config.Config) {
	if spec.ResourceGroup == "" {
		spec.ResourceGroup = cfg.GetResourceGroup()
	}
	if spec.Location == "" {
		spec.Location = cfg.GetLocation()
	}
	if spec.KubernetesVersion == "" {
		spec.KubernetesVersion = cfg.Cluster.KubernetesVersion
	}
	if spec.AdminUsername == "" {
		spec.AdminUsername = cfg.Cluster.AdminUsername
	}
	if spec.SSHPublicKey == "" {
		spec.SSHPublicKey = cfg.Cluster.SSHPublicKey
	}
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	var (
		resourceGroup string
		noWait        bool
	)

	cmd := &cobra.Command{
		Use:       "delete [cluster|registry] NAME",
		Short:     "Delete a managed cluster or container registry",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"cluster", "registry"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), args[0], args[1], resourceGroup, noWait)
		},
	}

	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group of the resource (defaults to azure.resourceGroup)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return as soon as the delete request is accepted")

	return cmd
}

func runDelete(ctx context.Context, kind, name, resourceGroup string, noWait bool) error {
	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	rg, err := resourceGroupOrDefault(svc, resourceGroup)
	if err != nil {
		return err
	}

	switch kind {
	case "cluster":
		return svc.clusters.Delete(ctx, rg, name, !noWait)
	case "registry":
		return svc.registry.Delete(ctx, rg, name)
	default:
		return fmt.Errorf("unknown resource kind %q, expected cluster or registry", kind)
	}
}

// NewGrantRoleCommand creates the grant-role command
func NewGrantRoleCommand() *cobra.Command {
	var (
		scope         string
		roleName      string
		objectID      string
		clusterName   string
		resourceGroup string
	)

	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Grant a role on a scope to a principal or a cluster's identity",
		Long:  "Create a role assignment for a directory object ID, or for the identity a managed cluster runs as",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrantRole(cmd.Context(), scope, roleName, objectID, clusterName, resourceGroup)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Resource ID the assignment applies to (required)")
	cmd.Flags().StringVar(&roleName, "role", "", "Role name, e.g. AcrPull or Contributor (required)")
	cmd.Flags().StringVar(&objectID, "object-id", "", "Directory object ID of the principal")
	cmd.Flags().StringVar(&clusterName, "cluster", "", "Grant to this cluster's identity instead of an object ID")
	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group of the cluster (defaults to azure.resourceGroup)")
	_ = cmd.MarkFlagRequired("scope")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func runGrantRole(ctx context.Context, scope, roleName, objectID, clusterName, resourceGroup string) error {
	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}

	var ref principal.Ref
	switch {
	case objectID != "" && clusterName != "":
		return fmt.Errorf("--object-id and --cluster are mutually exclusive")
	case objectID != "":
		ref = principal.ObjectIDRef{ID: objectID}
	case clusterName != "":
		rg, err := resourceGroupOrDefault(svc, resourceGroup)
		if err != nil {
			return err
		}
		mc, err := svc.clusters.Get(ctx, rg, clusterName)
		if err != nil {
			return err
		}
		ref = principal.ClusterRef{Cluster: mc}
	default:
		return fmt.Errorf("either --object-id or --cluster is required")
	}

	assignment, err := svc.rbac.Grant(ctx, scope, roleName, ref)
	if err != nil {
		return err
	}
	fmt.Printf("Role assignment: %s\n", to.String(assignment.ID))
	return nil
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	var (
		scope         string
		clusterName   string
		resourceGroup string
	)

	cmd := &cobra.Command{
		Use:       "list [clusters|registries|roleassignments|agentpools]",
		Short:     "List provisioned resources",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"clusters", "registries", "roleassignments", "agentpools"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), args[0], scope, clusterName, resourceGroup)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Scope for roleassignments listing")
	cmd.Flags().StringVar(&clusterName, "cluster", "", "Cluster for agentpools listing")
	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group for agentpools listing (defaults to azure.resourceGroup)")

	return cmd
}

func runList(ctx context.Context, kind, scope, clusterName, resourceGroup string) error {
	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}

	switch kind {
	case "clusters":
		clusters, err := svc.clusters.List(ctx)
		if err != nil {
			return err
		}
		for _, mc := range clusters {
			fmt.Printf("%s\t%s\n", to.String(mc.Name), to.String(mc.Location))
		}
	case "registries":
		registries, err := svc.registry.List(ctx)
		if err != nil {
			return err
		}
		for _, reg := range registries {
			fmt.Printf("%s\t%s\n", to.String(reg.Name), to.String(reg.Location))
		}
	case "roleassignments":
		if scope == "" {
			return fmt.Errorf("--scope is required to list role assignments")
		}
		assignments, err := svc.rbac.ListForScope(ctx, scope)
		if err != nil {
			return err
		}
		for _, ra := range assignments {
			var principalID, roleDefID string
			if ra.Properties != nil {
				principalID = to.String(ra.Properties.PrincipalID)
				roleDefID = to.String(ra.Properties.RoleDefinitionID)
			}
			fmt.Printf("%s\t%s\t%s\n", to.String(ra.Name), principalID, roleDefID)
		}
	case "agentpools":
		if clusterName == "" {
			return fmt.Errorf("--cluster is required to list agent pools")
		}
		rg, err := resourceGroupOrDefault(svc, resourceGroup)
		if err != nil {
			return err
		}
		pools, err := svc.pools.List(ctx, rg, clusterName)
		if err != nil {
			return err
		}
		for _, pool := range pools {
			var count int32
			var mode string
			if pool.Properties != nil {
				if pool.Properties.Count != nil {
					count = *pool.Properties.Count
				}
				if pool.Properties.Mode != nil {
					mode = string(*pool.Properties.Mode)
				}
			}
			fmt.Printf("%s\t%d\t%s\n", to.String(pool.Name), count, mode)
		}
	default:
		return fmt.Errorf("unknown resource kind %q, expected clusters, registries, roleassignments, or agentpools", kind)
	}

	return nil
}

// NewRotateCredentialCommand creates the rotate-credential command
func NewRotateCredentialCommand() *cobra.Command {
	var (
		clusterName   string
		resourceGroup string
		kind          string
		displayName   string
	)

	cmd := &cobra.Command{
		Use:   "rotate-credential",
		Short: "Rotate a cluster's service principal or AAD server application secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRotateCredential(cmd.Context(), clusterName, resourceGroup, kind, displayName)
		},
	}

	cmd.Flags().StringVar(&clusterName, "cluster", "", "Cluster to rotate credentials for (required)")
	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group of the cluster (defaults to azure.resourceGroup)")
	cmd.Flags().StringVar(&kind, "kind", string(cluster.RotationClusterManagement), "Rotation kind: cluster-management or aad")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Label for the new password credential")
	_ = cmd.MarkFlagRequired("cluster")

	return cmd
}

func runRotateCredential(ctx context.Context, clusterName, resourceGroup, kind, displayName string) error {
	svc, err := buildServices(ctx)
	if err != nil {
		return err
	}
	rg, err := resourceGroupOrDefault(svc, resourceGroup)
	if err != nil {
		return err
	}

	secret, err := svc.rotator.Rotate(ctx, rg, clusterName, cluster.RotationKind(kind), cluster.RotateOptions{DisplayName: displayName})
	if err != nil {
		return err
	}
	if secret == "" {
		return nil
	}

	// The secret is printed exactly once and never logged.
	fmt.Printf("New secret: %s\n", secret)
	return nil
}

// NewNodePoolCommand creates the nodepool command group
func NewNodePoolCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodepool",
		Short: "Manage agent pools on an existing cluster",
	}

	cmd.AddCommand(newNodePoolAddCommand())
	cmd.AddCommand(newNodePoolDeleteCommand())

	return cmd
}

func newNodePoolAddCommand() *cobra.Command {
	var (
		resourceGroup string
		count         int32
		vmSize        string
		mode          string
	)

	cmd := &cobra.Command{
		Use:   "add CLUSTER POOL",
		Short: "Add an agent pool to a cluster",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}
			rg, err := resourceGroupOrDefault(svc, resourceGroup)
			if err != nil {
				return err
			}
			_, err = svc.pools.Add(cmd.Context(), rg, args[0], cluster.AgentPoolSpec{
				Name:      args[1],
				NodeCount: count,
				VMSize:    vmSize,
				Mode:      mode,
			})
			return err
		},
	}

	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group of the cluster (defaults to azure.resourceGroup)")
	cmd.Flags().Int32Var(&count, "count", 3, "Number of nodes in the pool")
	cmd.Flags().StringVar(&vmSize, "vm-size", "", "VM size for the pool nodes")
	cmd.Flags().StringVar(&mode, "mode", string(cluster.PoolModeUser), "Pool mode: System or User")

	return cmd
}

func newNodePoolDeleteCommand() *cobra.Command {
	var resourceGroup string

	cmd := &cobra.Command{
		Use:   "delete CLUSTER POOL",
		Short: "Delete an agent pool from a cluster",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd.Context())
			if err != nil {
				return err
			}
			rg, err := resourceGroupOrDefault(svc, resourceGroup)
			if err != nil {
				return err
			}
			return svc.pools.Remove(cmd.Context(), rg, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&resourceGroup, "resource-group", "", "Resource group of the cluster (defaults to azure.resourceGroup)")

	return cmd
}

// NewVersionCommand creates a new version command
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version, build commit, and build time information",
		Run: func(cmd *cobra.Command, args []string) {
			runVersion()
		},
	}

	return cmd
}

// runVersion displays version information
func runVersion() {
	fmt.Printf("AKS Provisioner\n")
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Build Time: %s\n", BuildTime)
}
