package cluster

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTopology indicates a cluster specification with no agent pools.
	ErrEmptyTopology = errors.New("agent pool topology is empty")

	// ErrProvisioningExhausted indicates the service-principal-visibility
	// retry budget ran out before the resource manager accepted the cluster.
	ErrProvisioningExhausted = errors.New("provisioning attempts exhausted")
)

// ProvisioningFailedError reports a resource manager deployment failure after
// the create request was accepted. The original diagnostic is preserved so
// operators can correlate it with server-side logs.
type ProvisioningFailedError struct {
	Err error
}

func (e *ProvisioningFailedError) Error() string {
	return fmt.Sprintf("cluster provisioning failed: %v", e.Err)
}

func (e *ProvisioningFailedError) Unwrap() error { return e.Err }
