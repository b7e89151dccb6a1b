package main

import (
	"os"

	"treegroup/cmd/treegroup/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
