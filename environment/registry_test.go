package environment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lfbraz/azureml-inference-spark/workspace"
)

// fakeRegistry mimics the platform's environment registry: registering a
// name appends an immutable version, names resolve to their latest.
type fakeRegistry struct {
	versions map[string][]RegisteredEnvironment
	failNext bool
}

func (f *fakeRegistry) routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/subscriptions/{sub}/resourceGroups/{rg}/workspaces/{ws}", func(r chi.Router) {
		r.Post("/environments/{name}", func(w http.ResponseWriter, req *http.Request) {
			var env Environment
			if err := json.NewDecoder(req.Body).Decode(&env); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			name := chi.URLParam(req, "name")
			state := BuildSucceeded
			if f.failNext {
				state = BuildFailed
				f.failNext = false
			}

			registered := RegisteredEnvironment{
				Name:      name,
				Version:   len(f.versions[name]) + 1,
				Image:     "registry.local/" + name + ":" + strconv.Itoa(len(f.versions[name])+1),
				State:     state,
				CreatedAt: time.Now().UTC(),
			}
			f.versions[name] = append(f.versions[name], registered)

			writeJson(w, registered)
		})

		r.Get("/environments/{name}", func(w http.ResponseWriter, req *http.Request) {
			versions := f.versions[chi.URLParam(req, "name")]
			if len(versions) == 0 {
				http.NotFound(w, req)
				return
			}
			writeJson(w, versions[len(versions)-1])
		})

		r.Get("/environments/{name}/versions/{version}", func(w http.ResponseWriter, req *http.Request) {
			version, err := strconv.Atoi(chi.URLParam(req, "version"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			versions := f.versions[chi.URLParam(req, "name")]
			if version < 1 || version > len(versions) {
				http.NotFound(w, req)
				return
			}
			writeJson(w, versions[version-1])
		})
	})

	return r
}

func writeJson(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func setupRegistry(t *testing.T) (*fakeRegistry, *workspace.Workspace) {
	t.Helper()

	registry := &fakeRegistry{versions: map[string][]RegisteredEnvironment{}}
	server := httptest.NewServer(registry.routes())
	t.Cleanup(server.Close)

	ws := workspace.Open(server.URL, "ml-workspace", "ml-rg", "sub-123", nil)
	return registry, ws
}

func TestRegisterEnvironment(t *testing.T) {
	_, ws := setupRegistry(t)

	env, err := NewSparkEnvironment("spark-env", SparkBuildSpec{}, PythonSection{PipPackages: []string{"azureml-defaults"}})
	if err != nil {
		t.Fatal(err)
	}

	registered, err := Register(context.Background(), ws, env)
	if err != nil {
		t.Fatal(err)
	}

	if registered.Name != "spark-env" || registered.Version != 1 || registered.State != BuildSucceeded {
		t.Fatalf("unexpected registered environment %+v", registered)
	}
	if registered.Image == "" {
		t.Fatal("expected image reference on registered environment")
	}
}

func TestRegisterCreatesNewVersion(t *testing.T) {
	_, ws := setupRegistry(t)

	env, err := NewSparkEnvironment("spark-env", SparkBuildSpec{}, PythonSection{})
	if err != nil {
		t.Fatal(err)
	}

	first, err := Register(context.Background(), ws, env)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Register(context.Background(), ws, env)
	if err != nil {
		t.Fatal(err)
	}

	if first.Version != 1 || second.Version != 2 {
		t.Fatalf("expected auto-incremented versions, got %d and %d", first.Version, second.Version)
	}

	// the prior version must remain resolvable
	v1, err := GetVersion(context.Background(), ws, "spark-env", 1)
	if err != nil {
		t.Fatal(err)
	}
	if v1.Version != 1 || v1.Image != first.Image {
		t.Fatalf("unexpected prior version %+v", v1)
	}

	latest, err := Get(context.Background(), ws, "spark-env")
	if err != nil {
		t.Fatal(err)
	}
	if latest.Version != 2 {
		t.Fatalf("expected latest version 2, got %d", latest.Version)
	}
}

func TestRegisterBuildFailure(t *testing.T) {
	registry, ws := setupRegistry(t)
	registry.failNext = true

	env, err := NewSparkEnvironment("spark-env", SparkBuildSpec{}, PythonSection{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Register(context.Background(), ws, env)
	if err == nil {
		t.Fatal("expected error for failed image build")
	}
}

func TestRegisterEmptyName(t *testing.T) {
	_, ws := setupRegistry(t)

	_, err := Register(context.Background(), ws, Environment{})
	if err == nil {
		t.Fatal("expected error for empty environment name")
	}
}

func TestGetEnvironmentNotFound(t *testing.T) {
	_, ws := setupRegistry(t)

	_, err := Get(context.Background(), ws, "unknown")
	if !errors.Is(err, ErrEnvironmentNotFound) {
		t.Fatalf("expected ErrEnvironmentNotFound, got %v", err)
	}

	_, err = GetVersion(context.Background(), ws, "unknown", 3)
	if !errors.Is(err, ErrEnvironmentNotFound) {
		t.Fatalf("expected ErrEnvironmentNotFound, got %v", err)
	}
}
