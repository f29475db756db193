package environment

import "time"

// Environment describes a named, reproducible container specification to
// be registered with the platform. It is pure configuration: nothing is
// validated or built locally until the registrar submits it.
type Environment struct {
	Name string `json:"name"`

	Docker DockerSection `json:"docker"`
	Python PythonSection `json:"python"`
}

// DockerSection specifies the base container: either a reference to a
// prebuilt image or an inline Dockerfile build script. BuildArgs
// parameterize the script; SPARK_VERSION controls the Spark runtime the
// script installs.
type DockerSection struct {
	BaseImage   string            `json:"base_image,omitempty"`
	BuildScript string            `json:"build_script,omitempty"`
	BuildArgs   map[string]string `json:"build_args,omitempty"`
}

// PythonSection lists the packages installed on top of the base image via
// the language package managers.
type PythonSection struct {
	PipPackages   []string `json:"pip_packages,omitempty"`
	CondaChannels []string `json:"conda_channels,omitempty"`
	CondaPackages []string `json:"conda_packages,omitempty"`
}

// Build states reported by the platform for a registered environment.
const (
	BuildSucceeded = "succeeded"
	BuildFailed    = "failed"
)

// RegisteredEnvironment is the immutable, versioned snapshot the registry
// returns. Versions auto-increment per name; prior versions remain
// resolvable.
type RegisteredEnvironment struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	Image     string    `json:"image"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}
