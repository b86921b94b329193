// Package main implements the Nimbex agent CLI: forensic evidence
// collection from cloud and container platforms with a tamper-evident
// manifest and chain of custody.
package main

import (
	"fmt"
	"os"

	"github.com/ilexum-group/nimbex/cmd/nimbex/commands"
	"github.com/ilexum-group/nimbex/internal/logging"
)

func main() {
	if err := logging.InitDefaultLogger(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}

	if err := commands.NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
