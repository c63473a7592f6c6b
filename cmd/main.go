package main

import (
	"os"

	"github.com/kievzenit/bitsyc/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
