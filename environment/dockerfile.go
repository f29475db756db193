package environment

import (
	"embed"
	"fmt"
	"log"
	"strings"
	"text/template"
)

// The build scripts are bundled into the compiled binary so the CLI does
// not depend on files being present next to it.

//go:embed templates/*
var buildTemplates embed.FS

var dockerfiles = func() *template.Template {
	tmpl, err := template.ParseFS(buildTemplates, "templates/*")
	if err != nil {
		log.Panicf("error parsing build script templates: %v", err)
	}
	return tmpl
}()

const (
	DefaultBaseImage     = "ubuntu:18.04"
	DefaultSparkVersion  = "3.0.2"
	DefaultHadoopVersion = "2.7"
)

// SparkBuildSpec parameterizes the embedded Dockerfile that installs a JDK
// and Spark on top of the base image. The rendered script exports PATH and
// JAVA_HOME so the runtime is usable post-build.
type SparkBuildSpec struct {
	BaseImage     string
	SparkVersion  string
	HadoopVersion string
}

func (s SparkBuildSpec) withDefaults() SparkBuildSpec {
	if s.BaseImage == "" {
		s.BaseImage = DefaultBaseImage
	}
	if s.SparkVersion == "" {
		s.SparkVersion = DefaultSparkVersion
	}
	if s.HadoopVersion == "" {
		s.HadoopVersion = DefaultHadoopVersion
	}
	return s
}

// RenderSparkDockerfile produces the inline build script for the given
// spec. The output is configuration text only; syntax errors beyond what
// ValidateBuildScript covers surface when the platform builds it.
func RenderSparkDockerfile(spec SparkBuildSpec) (string, error) {
	spec = spec.withDefaults()

	content := strings.Builder{}
	err := dockerfiles.ExecuteTemplate(&content, "spark.dockerfile.tmpl", spec)
	if err != nil {
		return "", fmt.Errorf("error rendering build script: %w", err)
	}

	return content.String(), nil
}

// NewSparkEnvironment assembles the standard descriptor for a Spark
// inference environment: the rendered build script plus the packages the
// scoring runtime needs.
func NewSparkEnvironment(name string, spec SparkBuildSpec, python PythonSection) (Environment, error) {
	spec = spec.withDefaults()

	script, err := RenderSparkDockerfile(spec)
	if err != nil {
		return Environment{}, err
	}

	return Environment{
		Name: name,
		Docker: DockerSection{
			BuildScript: script,
			BuildArgs: map[string]string{
				"SPARK_VERSION":  spec.SparkVersion,
				"HADOOP_VERSION": spec.HadoopVersion,
			},
		},
		Python: python,
	}, nil
}
