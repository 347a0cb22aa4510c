// Command csrfguard runs the demo backend: a small item API on SQLite with
// every state-changing route behind the CSRF guard.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
