package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lfbraz/azureml-inference-spark/platform"
	"github.com/lfbraz/azureml-inference-spark/workspace"
)

// Client reads secrets from the platform's secret store. Secrets are
// addressed by a (scope, key) pair and returned as plain strings.
type Client struct {
	api *platform.Client
}

var ErrSecretNotFound = errors.New("secret not found")

func NewClient(endpoint string, tokens platform.TokenSource) *Client {
	return &Client{api: platform.NewClient(endpoint, tokens)}
}

type secretResponse struct {
	Value string `json:"value"`
}

func (c *Client) GetSecret(ctx context.Context, scope, key string) (string, error) {
	var secret secretResponse
	err := c.api.Get(ctx, fmt.Sprintf("secrets/%v/%v", scope, key), &secret)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return "", fmt.Errorf("%w: %v/%v", ErrSecretNotFound, scope, key)
		}
		slog.Error("error reading secret", "scope", scope, "key", key, "error", err)
		return "", fmt.Errorf("error reading secret %v/%v: %w", scope, key, err)
	}
	return secret.Value, nil
}

// Keys under which the service principal credentials are stored.
const (
	TenantIdKey     = "tenant-id"
	ClientIdKey     = "client-id"
	ClientSecretKey = "client-secret"
)

// ResolveServicePrincipal reads the three well-known keys from the given
// scope and assembles the service principal used to authenticate with the
// platform.
func (c *Client) ResolveServicePrincipal(ctx context.Context, scope string) (workspace.ServicePrincipal, error) {
	tenantId, err := c.GetSecret(ctx, scope, TenantIdKey)
	if err != nil {
		return workspace.ServicePrincipal{}, err
	}
	clientId, err := c.GetSecret(ctx, scope, ClientIdKey)
	if err != nil {
		return workspace.ServicePrincipal{}, err
	}
	clientSecret, err := c.GetSecret(ctx, scope, ClientSecretKey)
	if err != nil {
		return workspace.ServicePrincipal{}, err
	}

	slog.Info("service principal resolved from secret store", "scope", scope, "tenant_id", tenantId)

	return workspace.ServicePrincipal{
		TenantId:     tenantId,
		ClientId:     clientId,
		ClientSecret: clientSecret,
	}, nil
}
