package main

import (
	"os"

	gleanercmder "github.com/papercomputeco/gleaner/cmd/gleaner"
)

func main() {
	cmd := gleanercmder.NewGleanerCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
