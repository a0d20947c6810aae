// Command shopctl runs operator tasks against the shop database: manual
// gateway verification, overdue sweeps, stock adjustments and PDF export.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shopctl: %v\n", err)
		os.Exit(1)
	}
}
