package main

import (
	"os"

	"github.com/soundprediction/mangagraph/cmd/mangagraph"
)

func main() {
	if err := mangagraph.Execute(); err != nil {
		os.Exit(1)
	}
}
