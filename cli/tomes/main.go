package main

import (
	"os"

	tomescmder "github.com/papercomputeco/tomes/cmd/tomes"
)

func main() {
	cmd := tomescmder.NewTomesCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
