// onscale - command-line client for the OnScale simulation platform.
package main

import (
	"os"

	"github.com/onscale/onscale-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
