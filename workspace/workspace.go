package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lfbraz/azureml-inference-spark/platform"
)

// Workspace is the authenticated handle to the platform's top-level
// container for models, environments, and deployments. It is opened once
// and not mutated afterwards.
type Workspace struct {
	Name           string `json:"name"`
	ResourceGroup  string `json:"resource_group"`
	SubscriptionId string `json:"subscription_id"`
	Location       string `json:"location"`

	api *platform.Client
}

var ErrWorkspaceNotFound = errors.New("workspace not found")

// Get retrieves the workspace by name, resource group, and subscription.
// Fails with an authentication/access error if the resolved principal
// cannot see the workspace; the error is surfaced directly to the caller.
func Get(ctx context.Context, apiEndpoint, name, resourceGroup, subscriptionId string, cred *Credential) (*Workspace, error) {
	api := platform.NewClient(apiEndpoint, cred)

	var ws Workspace
	err := api.Get(ctx, workspacePath(subscriptionId, resourceGroup, name), &ws)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v in resource group %v", ErrWorkspaceNotFound, name, resourceGroup)
		}
		slog.Error("error retrieving workspace", "workspace", name, "resource_group", resourceGroup, "error", err)
		return nil, fmt.Errorf("error retrieving workspace %v: %w", name, err)
	}

	ws.api = api

	slog.Info("workspace retrieved", "workspace", ws.Name, "resource_group", ws.ResourceGroup, "location", ws.Location)

	return &ws, nil
}

// Open builds a workspace handle directly from known coordinates without
// the retrieval round trip. Get is preferred since it verifies access;
// Open exists for callers that already hold the workspace identifiers.
func Open(apiEndpoint, name, resourceGroup, subscriptionId string, tokens platform.TokenSource) *Workspace {
	return &Workspace{
		Name:           name,
		ResourceGroup:  resourceGroup,
		SubscriptionId: subscriptionId,
		api:            platform.NewClient(apiEndpoint, tokens),
	}
}

func workspacePath(subscriptionId, resourceGroup, name string) string {
	return fmt.Sprintf("subscriptions/%v/resourceGroups/%v/workspaces/%v", subscriptionId, resourceGroup, name)
}

// Api returns the platform client scoped to this workspace's endpoint.
func (w *Workspace) Api() *platform.Client {
	return w.api
}

// Path is the API path prefix under which all of this workspace's
// resources live.
func (w *Workspace) Path() string {
	return workspacePath(w.SubscriptionId, w.ResourceGroup, w.Name)
}

func (w *Workspace) ResourcePath(parts ...string) string {
	path := w.Path()
	for _, part := range parts {
		path += "/" + part
	}
	return path
}
