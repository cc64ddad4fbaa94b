// Command molgraph featurizes SMILES into molecular graphs.
package main

import (
	"os"

	"github.com/turtacn/molgraph/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
