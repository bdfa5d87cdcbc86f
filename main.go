package main

import (
	"os"

	"github.com/chdqbank/qbank/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
