package deployment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lfbraz/azureml-inference-spark/environment"
	"github.com/lfbraz/azureml-inference-spark/workspace"
)

type fakeService struct {
	service Service
	// remaining states the service steps through, one per status poll
	transitions []ServiceState
	logs        string
}

// fakeTarget mimics the platform's container instance target: deployments
// are created pending and advance one state per poll.
type fakeTarget struct {
	services map[string]*fakeService
	// state sequence assigned to newly created services
	rollout []ServiceState
}

func (f *fakeTarget) routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/subscriptions/{sub}/resourceGroups/{rg}/workspaces/{ws}/services/{name}", func(r chi.Router) {
		r.Put("/", func(w http.ResponseWriter, req *http.Request) {
			var request deployRequest
			if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			name := chi.URLParam(req, "name")
			if _, exists := f.services[name]; exists && !request.Overwrite {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code": "Conflict", "message": "service " + name + " already exists",
				})
				return
			}

			f.services[name] = &fakeService{
				service:     Service{Name: name, State: StatePending},
				transitions: f.rollout,
			}
			writeJson(w, f.services[name].service)
		})

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			svc, ok := f.services[chi.URLParam(req, "name")]
			if !ok {
				http.NotFound(w, req)
				return
			}

			if len(svc.transitions) > 0 {
				svc.service.State = svc.transitions[0]
				svc.transitions = svc.transitions[1:]
				svc.service.Output = append(svc.service.Output, "state: "+string(svc.service.State))
			}
			if svc.service.State == StateRunning {
				svc.service.ScoringURI = "http://scoring.local/" + svc.service.Name + "/score"
			}
			if svc.service.State == StateFailed {
				svc.service.Error = "container crashed at startup"
			}

			writeJson(w, svc.service)
		})

		r.Get("/logs", func(w http.ResponseWriter, req *http.Request) {
			svc, ok := f.services[chi.URLParam(req, "name")]
			if !ok {
				http.NotFound(w, req)
				return
			}
			writeJson(w, map[string]string{"content": svc.logs})
		})

		r.Delete("/", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			if _, ok := f.services[name]; !ok {
				http.NotFound(w, req)
				return
			}
			delete(f.services, name)
			writeJson(w, struct{}{})
		})
	})

	return r
}

func writeJson(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func setupTarget(t *testing.T, rollout ...ServiceState) (*fakeTarget, *workspace.Workspace) {
	t.Helper()

	target := &fakeTarget{services: map[string]*fakeService{}, rollout: rollout}
	server := httptest.NewServer(target.routes())
	t.Cleanup(server.Close)

	prev := pollInterval
	pollInterval = 5 * time.Millisecond
	t.Cleanup(func() { pollInterval = prev })

	ws := workspace.Open(server.URL, "ml-workspace", "ml-rg", "sub-123", nil)
	return target, ws
}

func testInference() InferenceConfig {
	return InferenceConfig{
		EntryScript: "score.py",
		Environment: &environment.RegisteredEnvironment{Name: "spark-env", Version: 1, State: environment.BuildSucceeded},
	}
}

func TestDeployAndWait(t *testing.T) {
	_, ws := setupTarget(t, StatePending, StatePending, StateRunning)

	service, err := Deploy(
		context.Background(), ws, "spark-scoring",
		[]ModelReference{{Name: "sentiment", Version: 2}},
		testInference(), DeployConfig{CpuCores: 2, MemoryGb: 4}, false,
	)
	if err != nil {
		t.Fatal(err)
	}

	if service.State != StatePending {
		t.Fatalf("expected pending after deploy, got %v", service.State)
	}

	err = service.WaitForDeployment(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}

	if service.State != StateRunning {
		t.Fatalf("expected running, got %v", service.State)
	}
	if service.ScoringURI == "" {
		t.Fatal("expected scoring uri once running")
	}
}

func TestDeployConflictWithoutOverwrite(t *testing.T) {
	_, ws := setupTarget(t, StateRunning)

	models := []ModelReference{{Name: "sentiment"}}

	_, err := Deploy(context.Background(), ws, "spark-scoring", models, testInference(), DeployConfig{}, false)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Deploy(context.Background(), ws, "spark-scoring", models, testInference(), DeployConfig{}, false)
	if !errors.Is(err, ErrServiceExists) {
		t.Fatalf("expected ErrServiceExists, got %v", err)
	}

	// overwrite replaces the existing service
	service, err := Deploy(context.Background(), ws, "spark-scoring", models, testInference(), DeployConfig{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if service.State != StatePending {
		t.Fatalf("expected replacement to start pending, got %v", service.State)
	}
}

func TestWaitForFailedDeployment(t *testing.T) {
	_, ws := setupTarget(t, StatePending, StateFailed)

	service, err := Deploy(
		context.Background(), ws, "spark-scoring",
		[]ModelReference{{Name: "sentiment"}}, testInference(), DeployConfig{}, false,
	)
	if err != nil {
		t.Fatal(err)
	}

	err = service.WaitForDeployment(context.Background(), false)
	if err == nil {
		t.Fatal("expected error for failed deployment")
	}
	if !strings.Contains(err.Error(), "container crashed at startup") {
		t.Fatalf("expected platform error detail in message, got %v", err)
	}
}

func TestWaitCancellation(t *testing.T) {
	// no transitions: the service never leaves pending
	_, ws := setupTarget(t)

	service, err := Deploy(
		context.Background(), ws, "spark-scoring",
		[]ModelReference{{Name: "sentiment"}}, testInference(), DeployConfig{}, false,
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = service.WaitForDeployment(ctx, false)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}

func TestDeployValidation(t *testing.T) {
	_, ws := setupTarget(t)

	models := []ModelReference{{Name: "sentiment"}}

	if _, err := Deploy(context.Background(), ws, "", models, testInference(), DeployConfig{}, false); err == nil {
		t.Fatal("expected error for empty service name")
	}
	if _, err := Deploy(context.Background(), ws, "svc", nil, testInference(), DeployConfig{}, false); err == nil {
		t.Fatal("expected error for missing models")
	}
	if _, err := Deploy(context.Background(), ws, "svc", models, InferenceConfig{EntryScript: "score.py"}, DeployConfig{}, false); err == nil {
		t.Fatal("expected error for missing environment")
	}
	if _, err := Deploy(context.Background(), ws, "svc", models, InferenceConfig{Environment: testInference().Environment}, DeployConfig{}, false); err == nil {
		t.Fatal("expected error for missing entry script")
	}
}

func TestServiceLogsAndDelete(t *testing.T) {
	target, ws := setupTarget(t, StateRunning)

	service, err := Deploy(
		context.Background(), ws, "spark-scoring",
		[]ModelReference{{Name: "sentiment"}}, testInference(), DeployConfig{}, false,
	)
	if err != nil {
		t.Fatal(err)
	}

	target.services["spark-scoring"].logs = "starting spark session\nmodel loaded\n"

	lines, err := service.Logs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "starting spark session" {
		t.Fatalf("unexpected log lines %v", lines)
	}

	if err := Delete(context.Background(), ws, "spark-scoring"); err != nil {
		t.Fatal(err)
	}

	_, err = GetService(context.Background(), ws, "spark-scoring")
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound after delete, got %v", err)
	}

	err = Delete(context.Background(), ws, "spark-scoring")
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound on double delete, got %v", err)
	}
}
