// Package main is the entry point for the tcoracle CLI.
package main

import "tcoracle.dev/pkg/tcoracle/cmd"

func main() {
	cmd.Execute()
}
