package deployment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lfbraz/azureml-inference-spark/platform"
	"github.com/lfbraz/azureml-inference-spark/workspace"
)

type ServiceState string

// States the platform reports for an endpoint. Pending is transitional;
// Running and Failed are terminal for a deployment attempt.
const (
	StatePending ServiceState = "pending"
	StateRunning ServiceState = "running"
	StateFailed  ServiceState = "failed"
)

func (s ServiceState) Terminal() bool {
	return s == StateRunning || s == StateFailed
}

// Service is a handle to a hosted inference endpoint. Its state lives
// entirely on the platform; the handle only observes it.
type Service struct {
	Name       string       `json:"name"`
	State      ServiceState `json:"state"`
	ScoringURI string       `json:"scoring_uri,omitempty"`

	// Operation log lines and error detail from the deployment, populated
	// by the platform as the rollout progresses.
	Output []string `json:"output,omitempty"`
	Error  string   `json:"error,omitempty"`

	ws *workspace.Workspace
}

var pollInterval = 10 * time.Second

// WaitForDeployment polls the endpoint until it reaches a terminal state.
// It blocks with no timeout of its own; cancel the context to stop early.
// With showOutput the platform's operation log lines are echoed as they
// appear. A failed rollout returns an error carrying the platform's
// reported detail; deeper diagnosis (image pull, container start,
// health-check failures) happens through Logs.
func (s *Service) WaitForDeployment(ctx context.Context, showOutput bool) error {
	slog.Info("waiting for deployment", "service", s.Name, "state", s.State)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	seenOutput := 0

	for !s.State.Terminal() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("wait for deployment of %v interrupted: %w", s.Name, ctx.Err())
		}

		updated, err := GetService(ctx, s.ws, s.Name)
		if err != nil {
			return fmt.Errorf("error polling deployment of %v: %w", s.Name, err)
		}

		if showOutput {
			for _, line := range updated.Output[min(seenOutput, len(updated.Output)):] {
				slog.Info("deployment output", "service", s.Name, "line", line)
			}
			seenOutput = len(updated.Output)
		}

		if updated.State != s.State {
			slog.Info("deployment state changed", "service", s.Name, "state", updated.State)
		}

		s.State = updated.State
		s.ScoringURI = updated.ScoringURI
		s.Output = updated.Output
		s.Error = updated.Error
	}

	if s.State == StateFailed {
		detail := s.Error
		if detail == "" {
			detail = "no error detail reported, inspect the service logs"
		}
		slog.Error("deployment failed", "service", s.Name, "detail", detail)
		return fmt.Errorf("deployment of service %v failed: %v", s.Name, detail)
	}

	slog.Info("deployment ready", "service", s.Name, "scoring_uri", s.ScoringURI)

	return nil
}

type logsResponse struct {
	Content string `json:"content"`
}

// Logs fetches the endpoint's container logs from the platform. This is
// the diagnostic surface for failures during image pull, container start,
// or health checks.
func (s *Service) Logs(ctx context.Context) ([]string, error) {
	var logs logsResponse
	err := s.ws.Api().Get(ctx, s.ws.ResourcePath("services", s.Name, "logs"), &logs)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, s.Name)
		}
		slog.Error("error retrieving service logs", "service", s.Name, "error", err)
		return nil, fmt.Errorf("error retrieving logs for service %v: %w", s.Name, err)
	}

	if logs.Content == "" {
		return nil, nil
	}
	return strings.Split(strings.TrimRight(logs.Content, "\n"), "\n"), nil
}
