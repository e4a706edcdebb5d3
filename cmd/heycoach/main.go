package main

import (
	"os"

	"github.com/harun/heycoach/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
