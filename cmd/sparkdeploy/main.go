package main

import (
	"fmt"
	"os"

	"github.com/lfbraz/azureml-inference-spark/cmd/sparkdeploy/app"
)

func main() {
	cmd := app.NewSparkDeployCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
