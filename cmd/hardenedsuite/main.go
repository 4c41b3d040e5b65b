package main

import (
	"os"

	"github.com/gzhole/hardenedsuite/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
