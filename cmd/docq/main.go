// Command docq is the entry point for the docq document Q&A service.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// upload, chat, and collection management API.
package main

import (
	"fmt"
	"os"

	"github.com/docqhq/docq-go/cmd/docq/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
