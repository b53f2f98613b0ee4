package main

import (
	"fmt"
	"os"

	"github.com/sadopc/stepr/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
