package environment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lfbraz/azureml-inference-spark/platform"
	"github.com/lfbraz/azureml-inference-spark/workspace"
)

var ErrEnvironmentNotFound = errors.New("environment not found")

// Register submits the descriptor to the workspace's environment registry.
// The platform builds the container image from the descriptor and
// stores the result as a new version under the environment's name; prior
// versions are never mutated. The call blocks until the remote build
// completes or fails, and build failures (malformed script, missing
// packages, quota) surface as errors with no local retry.
func Register(ctx context.Context, ws *workspace.Workspace, env Environment) (*RegisteredEnvironment, error) {
	if env.Name == "" {
		return nil, fmt.Errorf("environment name must not be empty")
	}

	slog.Info("registering environment", "name", env.Name, "workspace", ws.Name)

	var registered RegisteredEnvironment
	err := ws.Api().Post(ctx, ws.ResourcePath("environments", env.Name), env, &registered)
	if err != nil {
		slog.Error("error registering environment", "name", env.Name, "error", err)
		return nil, fmt.Errorf("error registering environment %v: %w", env.Name, err)
	}

	if registered.State != BuildSucceeded {
		slog.Error("environment image build failed", "name", registered.Name, "version", registered.Version, "state", registered.State)
		return nil, fmt.Errorf("image build for environment %v:%d finished with state %v", registered.Name, registered.Version, registered.State)
	}

	slog.Info("environment registered", "name", registered.Name, "version", registered.Version, "image", registered.Image)

	return &registered, nil
}

// Get retrieves the latest registered version of the named environment.
func Get(ctx context.Context, ws *workspace.Workspace, name string) (*RegisteredEnvironment, error) {
	return get(ctx, ws, name, ws.ResourcePath("environments", name))
}

// GetVersion retrieves a specific prior version.
func GetVersion(ctx context.Context, ws *workspace.Workspace, name string, version int) (*RegisteredEnvironment, error) {
	return get(ctx, ws, name, ws.ResourcePath("environments", name, "versions", fmt.Sprint(version)))
}

func get(ctx context.Context, ws *workspace.Workspace, name, path string) (*RegisteredEnvironment, error) {
	var registered RegisteredEnvironment
	err := ws.Api().Get(ctx, path, &registered)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrEnvironmentNotFound, name)
		}
		slog.Error("error retrieving environment", "name", name, "error", err)
		return nil, fmt.Errorf("error retrieving environment %v: %w", name, err)
	}

	return &registered, nil
}
