package main

import (
	"os"

	"github.com/leslieo2/go-asset-reload/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
