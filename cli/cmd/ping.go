// ABOUTME: The ping command - checks whether the Ollama server is reachable
// ABOUTME: and answering at its root endpoint.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/2389-research/aigo/cli/config"
	"github.com/2389-research/aigo/ollama"
)

// pingTimeout bounds the liveness probe.
const pingTimeout = 5 * time.Second

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check whether the Ollama server is reachable",
		Flags:  SharedFlags(),
		Action: pingAction,
	}
}

func pingAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logger.Sync()

	client := ollamaClient(cfg)
	client.SetLogger(logger)

	ctx, cancel := context.WithTimeout(c.Context, pingTimeout)
	defer cancel()
	if !client.Active(ctx) {
		return cli.Exit("ollama server is not reachable", 1)
	}
	fmt.Println("ollama server is active")
	return nil
}

// ollamaClient builds a client from the config's ollama section.
func ollamaClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClientWithAPIKey(cfg.Ollama.BaseURL, cfg.Ollama.APIKey)
}
