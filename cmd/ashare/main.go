// Package main provides the entry point for the ashare CLI.
package main

import (
	"github.com/quantrail/ashare/internal/cli"
)

func main() {
	cli.Execute()
}
