package deployment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lfbraz/azureml-inference-spark/environment"
	"github.com/lfbraz/azureml-inference-spark/platform"
	"github.com/lfbraz/azureml-inference-spark/workspace"
)

// ModelReference names a trained model artifact already stored in the
// workspace. Version 0 means latest.
type ModelReference struct {
	Name    string `json:"name"`
	Version int    `json:"version,omitempty"`
}

// InferenceConfig pairs the scoring entry point with the registered
// environment the deployment runtime executes it in. It has no lifecycle
// beyond the deploy call that consumes it.
type InferenceConfig struct {
	EntryScript string                             `json:"entry_script"`
	Environment *environment.RegisteredEnvironment `json:"environment"`
}

// DeployConfig sizes the managed container instance backing the endpoint.
type DeployConfig struct {
	CpuCores    float64 `json:"cpu_cores"`
	MemoryGb    float64 `json:"memory_gb"`
	Description string  `json:"description,omitempty"`
}

func (c DeployConfig) withDefaults() DeployConfig {
	if c.CpuCores <= 0 {
		c.CpuCores = 1
	}
	if c.MemoryGb <= 0 {
		c.MemoryGb = 1
	}
	return c
}

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceExists   = errors.New("a service with this name already exists")
)

type deployRequest struct {
	Models    []ModelReference `json:"models"`
	Inference InferenceConfig  `json:"inference_config"`
	Deploy    DeployConfig     `json:"deploy_config"`
	Overwrite bool             `json:"overwrite"`
}

// Deploy requests creation of a hosted endpoint under serviceName. If
// overwrite is set and a same-named service exists it is replaced;
// otherwise the platform rejects the request with a conflict. The returned
// service starts in the pending state and must be polled with
// WaitForDeployment until it is ready.
func Deploy(
	ctx context.Context, ws *workspace.Workspace, serviceName string,
	models []ModelReference, inference InferenceConfig, deploy DeployConfig, overwrite bool,
) (*Service, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("service name must not be empty")
	}
	if inference.EntryScript == "" {
		return nil, fmt.Errorf("inference config must specify an entry script")
	}
	if inference.Environment == nil {
		return nil, fmt.Errorf("inference config must reference a registered environment")
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("at least one model reference is required")
	}

	deploy = deploy.withDefaults()

	slog.Info("requesting deployment",
		"service", serviceName, "workspace", ws.Name,
		"environment", fmt.Sprintf("%v:%d", inference.Environment.Name, inference.Environment.Version),
		"cpu_cores", deploy.CpuCores, "memory_gb", deploy.MemoryGb, "overwrite", overwrite,
	)

	request := deployRequest{Models: models, Inference: inference, Deploy: deploy, Overwrite: overwrite}

	var service Service
	err := ws.Api().Put(ctx, ws.ResourcePath("services", serviceName), request, &service)
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return nil, fmt.Errorf("%w: %v (pass overwrite to replace it)", ErrServiceExists, serviceName)
		}
		slog.Error("error requesting deployment", "service", serviceName, "error", err)
		return nil, fmt.Errorf("error deploying service %v: %w", serviceName, err)
	}

	service.ws = ws

	slog.Info("deployment requested", "service", service.Name, "state", service.State)

	return &service, nil
}

// GetService retrieves the current state of an existing endpoint.
func GetService(ctx context.Context, ws *workspace.Workspace, serviceName string) (*Service, error) {
	var service Service
	err := ws.Api().Get(ctx, ws.ResourcePath("services", serviceName), &service)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, serviceName)
		}
		slog.Error("error retrieving service", "service", serviceName, "error", err)
		return nil, fmt.Errorf("error retrieving service %v: %w", serviceName, err)
	}

	service.ws = ws
	return &service, nil
}

// Delete tears the endpoint down.
func Delete(ctx context.Context, ws *workspace.Workspace, serviceName string) error {
	err := ws.Api().Delete(ctx, ws.ResourcePath("services", serviceName))
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrServiceNotFound, serviceName)
		}
		slog.Error("error deleting service", "service", serviceName, "error", err)
		return fmt.Errorf("error deleting service %v: %w", serviceName, err)
	}

	slog.Info("service deleted", "service", serviceName)

	return nil
}
