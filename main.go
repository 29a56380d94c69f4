// main package for the gambitrun command-line tool
// Package main is the entry point for the gambitrun CLI.
package main

import "gambitrun.dev/pkg/gambitrun/cmd"

func main() {
	cmd.Execute()
}
