// Command intakectl checks and exports intake documents without running the
// HTTP service.
//
//	intakectl validate -f intake.yaml
//	intakectl export -f intake.yaml -o out/ --format all
//	intakectl tonkm -f intake.yaml
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/lca-intake/internal/intake"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	if intake.IsUserFacing(err) {
		fmt.Fprintln(w, "Error:", intake.FormatUserError(err))
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
