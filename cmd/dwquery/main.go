// Package main is the dwquery command.
package main

import (
	"os"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
