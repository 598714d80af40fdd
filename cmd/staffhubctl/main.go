package main

import (
	"os"

	"github.com/staffhub/staffhub/cmd/staffhubctl/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
