// Package main is the entry point for the Dev Dating API.
//
// MAIN PACKAGE IN GO:
// main stays minimal. Flag parsing, configuration and startup live in the
// cmd package (cobra commands), and the application itself in internal/.
// The only job left here is turning an error into a non-zero exit code;
// cobra has already printed it.
package main

import (
	"os"

	"github.com/sakif/devdate/cmd/server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
