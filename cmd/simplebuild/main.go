package main

import (
	"os"

	"github.com/haatos/simple-build/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Stderr))
}
