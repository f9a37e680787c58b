// Command pairs plays, simulates and inspects memory matching games.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/pairs/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
