package config

// Config represents the complete provisioner configuration structure.
// It contains Azure-specific settings and tool operational settings.
type Config struct {
	Azure    AzureConfig    `json:"azure"`
	Agent    AgentConfig    `json:"agent"`
	Cluster  ClusterConfig  `json:"cluster"`
	Registry RegistryConfig `json:"registry"`
}

// AzureConfig holds Azure-specific configuration required for connecting to Azure services.
// SubscriptionID and TenantID are required for proper operation.
type AzureConfig struct {
	SubscriptionID   string                  `json:"subscriptionId"`             // Azure subscription ID
	TenantID         string                  `json:"tenantId"`                   // Azure tenant ID
	Cloud            string                  `json:"cloud"`                      // Azure cloud environment (defaults to AzurePublicCloud)
	ResourceGroup    string                  `json:"resourceGroup"`              // Default resource group for provisioned resources
	Location         string                  `json:"location"`                   // Default Azure region (e.g., "eastus", "westus2")
	ServicePrincipal *ServicePrincipalConfig `json:"servicePrincipal,omitempty"` // Optional service principal authentication
}

// ServicePrincipalConfig holds Azure service principal authentication configuration.
// When provided, service principal authentication will be used instead of Azure CLI.
type ServicePrincipalConfig struct {
	TenantID     string `json:"tenantId"`     // Azure AD tenant ID
	ClientID     string `json:"clientId"`     // Azure AD application (client) ID
	ClientSecret string `json:"clientSecret"` // Azure AD application client secret
}

// AgentConfig holds tool-specific operational configuration.
type AgentConfig struct {
	LogLevel string `json:"logLevel"` // Logging level: debug, info, warning, error
	LogDir   string `json:"logDir"`   // Directory for log files; empty means stdout only
}

// ClusterConfig holds defaults applied to managed clusters when the
// provisioning spec leaves them unset.
type ClusterConfig struct {
	KubernetesVersion string `json:"kubernetesVersion"`
	VMSize            string `json:"vmSize"`
	NodeCount         int32  `json:"nodeCount"`
	AdminUsername     string `json:"adminUsername"`
	SSHPublicKey      string `json:"sshPublicKey"`
}

// RegistryConfig holds defaults for container registries created alongside clusters.
type RegistryConfig struct {
	SKU string `json:"sku"` // Registry SKU: Basic, Standard, or Premium
}

// IsSPConfigured checks if service principal credentials are provided in the configuration
func (cfg *Config) IsSPConfigured() bool {
	return cfg.Azure.ServicePrincipal != nil &&
		cfg.Azure.ServicePrincipal.ClientID != "" &&
		cfg.Azure.ServicePrincipal.ClientSecret != "" &&
		cfg.Azure.ServicePrincipal.TenantID != ""
}

// GetSubscriptionID returns the Azure subscription ID from configuration
func (cfg *Config) GetSubscriptionID() string {
	return cfg.Azure.SubscriptionID
}

// GetResourceGroup returns the default resource group from configuration
func (cfg *Config) GetResourceGroup() string {
	return cfg.Azure.ResourceGroup
}

// GetLocation returns the default Azure region from configuration
func (cfg *Config) GetLocation() string {
	return cfg.Azure.Location
}

// GetRegistrySKU returns the registry SKU from configuration
func (cfg *Config) GetRegistrySKU() string {
	return cfg.Registry.SKU
}
