// Command precis summarises long documents with map-reduce over any LLM.
package main

import (
	"os"

	"github.com/custodia-labs/precis/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(wire)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
