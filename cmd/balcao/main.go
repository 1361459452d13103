package main

import (
	"os"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
