// Command ragindex indexes a watch directory of documents for retrieval.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
