package main

import (
	"os"

	"github.com/dmitrijs2005/chatkeeper/internal/cli"
)

func main() {
	// Execute already reports the failure on stderr.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
