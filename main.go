package main

import (
	"os"

	"github.com/auditcortex/auditcortex/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
