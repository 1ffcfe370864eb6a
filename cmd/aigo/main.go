// ABOUTME: Entry point for the aigo CLI - text generation and model
// ABOUTME: inspection against Gemini and Ollama from the command line.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/2389-research/aigo/cli/cmd"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	app := &cli.App{
		Name:           "aigo",
		Usage:          "Generate text with Gemini or Ollama",
		Version:        version,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.GenerateCommand(),
			cmd.ModelsCommand(),
			cmd.PingCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled cli.ExitCoder errors. This branch
		// catches unexpected errors that were not wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit and prints anything else.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
