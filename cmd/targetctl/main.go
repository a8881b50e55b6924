// Command targetctl works with contact files offline: it filters them the way the
// dashboard does, lists the quick-filter presets and dry-runs imports.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
