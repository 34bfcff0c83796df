// Command syncstore is the CLI entry point: serve a node, or act as a
// client against one (value read/write, tag inspection, push, pull, watch,
// merge).
package main

import (
	"os"

	"github.com/synnergy-chain/syncstore/cmd/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
