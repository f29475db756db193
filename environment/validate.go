package environment

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidateBuildScript checks the properties of an inline build script that
// can be verified without a build tool: every line continuation is
// terminated, quotes are balanced per logical line, and the script exports
// the PATH and JAVA_HOME variables the Spark runtime requires post-build.
// Anything beyond this is only detected when the platform runs the build.
func ValidateBuildScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("build script is empty")
	}

	lines := strings.Split(script, "\n")

	continued := false
	logical := strings.Builder{}
	lineno := 0

	checkLogical := func() error {
		if err := checkQuotes(logical.String()); err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
		logical.Reset()
		return nil
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !continued {
			lineno = i + 1
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
		} else if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return fmt.Errorf("line %d: continuation is not followed by an instruction", i)
		}

		if strings.HasSuffix(trimmed, "\\") {
			continued = true
			logical.WriteString(strings.TrimSuffix(trimmed, "\\"))
			logical.WriteString(" ")
			continue
		}

		continued = false
		logical.WriteString(trimmed)
		if err := checkLogical(); err != nil {
			return err
		}
	}

	if continued {
		return fmt.Errorf("line %d: unterminated line continuation at end of script", lineno)
	}

	for _, required := range []string{"JAVA_HOME", "PATH"} {
		if !exportsVariable(lines, required) {
			return fmt.Errorf("build script does not export %v", required)
		}
	}

	return nil
}

func checkQuotes(line string) error {
	single, double := 0, 0
	escaped := false
	for _, r := range line {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '\'':
			if double%2 == 0 {
				single++
			}
		case '"':
			if single%2 == 0 {
				double++
			}
		}
	}
	if single%2 != 0 {
		return fmt.Errorf("unbalanced single quote")
	}
	if double%2 != 0 {
		return fmt.Errorf("unbalanced double quote")
	}
	return nil
}

func exportsVariable(lines []string, name string) bool {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "ENV ") && strings.Contains(trimmed, name+"=") {
			return true
		}
		if strings.Contains(trimmed, "export "+name+"=") {
			return true
		}
	}
	return false
}

var pysparkPin = regexp.MustCompile(`pyspark==([0-9][0-9.]*)`)

// CheckSparkVersionConsistency verifies that the SPARK_VERSION build arg
// agrees with any pyspark version pinned in the build script or the
// declared pip packages. A mismatch would produce an image whose installed
// pyspark cannot talk to its own Spark distribution.
func CheckSparkVersionConsistency(env Environment) error {
	declared, ok := env.Docker.BuildArgs["SPARK_VERSION"]
	if !ok || declared == "" {
		return nil
	}

	check := func(source, text string) error {
		for _, match := range pysparkPin.FindAllStringSubmatch(text, -1) {
			if match[1] != declared {
				return fmt.Errorf("%v pins pyspark==%v but SPARK_VERSION build arg is %v", source, match[1], declared)
			}
		}
		return nil
	}

	if err := check("build script", env.Docker.BuildScript); err != nil {
		return err
	}
	for _, pkg := range env.Python.PipPackages {
		if err := check("pip package list", pkg); err != nil {
			return err
		}
	}

	return nil
}
