package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

const (
	// Default configuration values
	defaultLogLevel          = "info"
	defaultAzureCloud        = "AzurePublicCloud"
	defaultKubernetesVersion = ""
	defaultVMSize            = "Standard_DS2_v2"
	defaultNodeCount         = 3
	defaultAdminUsername     = "azureuser"
	defaultRegistrySKU       = "Standard"

	// Environment variable prefix
	envPrefix = "AKS_PROVISIONER"
)

// Singleton instance for configuration
var (
	configInstance *Config
	configMutex    sync.RWMutex
)

// GetConfig returns the singleton configuration instance.
// Returns nil if configuration has not been loaded yet. Use LoadConfig() first.
// This function is thread-safe and handles concurrent access correctly.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return configInstance
}

// LoadConfig loads configuration from a JSON file and environment variables.
// The configPath parameter is required and cannot be empty.
// Environment variables can override config file values using the AKS_PROVISIONER_ prefix.
// For example: AKS_PROVISIONER_AZURE_LOCATION=westus2
func LoadConfig(configPath string) (*Config, error) {
	// Require config path to be specified
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	// Set up viper
	v := viper.New()
	v.SetConfigType("json")
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)

	// Load the specified config file
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file at %s: %w", configPath, err)
	}

	// Unmarshal config
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Set defaults for any missing values
	config.SetDefaults()

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Set the singleton instance
	configMutex.Lock()
	defer configMutex.Unlock()
	configInstance = config

	return config, nil
}

// SetDefaults sets default values for any missing configuration fields
func (c *Config) SetDefaults() {
	// Set default Azure cloud if not provided
	if c.Azure.Cloud == "" {
		c.Azure.Cloud = defaultAzureCloud
	}

	// Set default agent configuration if not provided
	if c.Agent.LogLevel == "" {
		c.Agent.LogLevel = defaultLogLevel
	}

	// Set default cluster configuration if not provided
	if c.Cluster.VMSize == "" {
		c.Cluster.VMSize = defaultVMSize
	}
	if c.Cluster.NodeCount == 0 {
		c.Cluster.NodeCount = defaultNodeCount
	}
	if c.Cluster.AdminUsername == "" {
		c.Cluster.AdminUsername = defaultAdminUsername
	}

	// Set default registry configuration if not provided
	if c.Registry.SKU == "" {
		c.Registry.SKU = defaultRegistrySKU
	}
}

// validLogLevels defines the allowed logging levels
var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warning": true,
	"error":   true,
}

// validAzureClouds defines the supported Azure cloud environments
// Currently only Azure Public Cloud is supported
var validAzureClouds = map[string]bool{
	"AzurePublicCloud": true,
}

// validRegistrySKUs defines the supported container registry SKUs
var validRegistrySKUs = map[string]bool{
	"Basic":    true,
	"Standard": true,
	"Premium":  true,
}

// Validate validates the configuration and ensures all required fields are set
func (c *Config) Validate() error {
	// Validate required Azure configuration
	if c.Azure.SubscriptionID == "" {
		return fmt.Errorf("azure.subscriptionId is required")
	}
	if c.Azure.TenantID == "" {
		return fmt.Errorf("azure.tenantId is required")
	}

	// Validate Azure cloud
	if !validAzureClouds[c.Azure.Cloud] {
		return fmt.Errorf("invalid azure.cloud: %s. Valid values are: AzurePublicCloud", c.Azure.Cloud)
	}

	// Validate log level
	if !validLogLevels[c.Agent.LogLevel] {
		return fmt.Errorf("invalid agent.logLevel: %s. Valid values are: debug, info, warning, error", c.Agent.LogLevel)
	}

	// Validate registry SKU
	if !validRegistrySKUs[c.Registry.SKU] {
		return fmt.Errorf("invalid registry.sku: %s. Valid values are: Basic, Standard, Premium", c.Registry.SKU)
	}

	// Validate cluster defaults
	if c.Cluster.NodeCount < 0 {
		return fmt.Errorf("invalid cluster.nodeCount: %d. Must be non-negative", c.Cluster.NodeCount)
	}

	return nil
}
