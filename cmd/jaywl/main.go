// Command jaywl runs the compositor core's CLI (spec §6.3).
package main

import (
	"os"

	"github.com/bnema/jaywl/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
