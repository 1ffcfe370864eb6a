// ABOUTME: The generate command - one-shot or streamed completion against the
// ABOUTME: configured provider, printing text as it arrives.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/2389-research/aigo/cli/config"
	"github.com/2389-research/aigo/gemini"
	"github.com/2389-research/aigo/ollama"
	"github.com/2389-research/aigo/stream"
)

// GenerateCommand returns the generate command.
func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a completion for a prompt",
		ArgsUsage: "<prompt>",
		Flags: append(SharedFlags(),
			&cli.BoolFlag{
				Name:    "stream",
				Aliases: []string{"s"},
				Usage:   "Stream the response as it is generated",
			},
			&cli.StringFlag{
				Name:  "system",
				Usage: "System prompt (ollama only)",
			},
		),
		Action: generateAction,
	}
}

func generateAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: aigo generate [options] <prompt>", 2)
	}
	prompt := strings.Join(c.Args().Slice(), " ")

	cfg, logger, err := setup(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logger.Sync()

	// Ctrl-C cancels a running stream; the engine closes it cleanly.
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch provider := resolveProvider(c, cfg); provider {
	case "gemini":
		return generateGemini(ctx, c, cfg, logger, prompt)
	case "ollama":
		return generateOllama(ctx, c, cfg, logger, prompt)
	default:
		return cli.Exit(fmt.Sprintf("unknown provider %q (want gemini or ollama)", provider), 2)
	}
}

func generateGemini(ctx context.Context, c *cli.Context, cfg *config.Config, logger *zap.Logger, prompt string) error {
	apiKey := cfg.Gemini.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return cli.Exit("missing Gemini API key: set gemini.api_key in the config or GEMINI_API_KEY", 1)
	}

	client := gemini.NewClientWithBaseURL(apiKey, resolveString(c, "model", cfg.Gemini.Model), cfg.Gemini.BaseURL)
	client.SetLogger(logger)

	if !c.Bool("stream") {
		resp, err := client.GenerateContent(ctx, prompt)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Println(resp.Text())
		return nil
	}

	s, err := client.StreamContent(ctx, prompt)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer s.Close()
	if err := printStream(s, (*gemini.GenerateContentResponse).Text); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func generateOllama(ctx context.Context, c *cli.Context, cfg *config.Config, logger *zap.Logger, prompt string) error {
	client := ollama.NewClientWithAPIKey(cfg.Ollama.BaseURL, cfg.Ollama.APIKey)
	client.SetLogger(logger)

	model := resolveString(c, "model", cfg.Ollama.Model)
	if model == "" {
		model = defaultOllamaModel
	}
	req := &ollama.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: c.String("system"),
	}

	if !c.Bool("stream") {
		resp, err := client.Generate(ctx, req)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Println(resp.Response)
		return nil
	}

	s, err := client.GenerateStream(ctx, req)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer s.Close()
	if err := printStream(s, func(r *ollama.GenerateResponse) string { return r.Response }); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

// printStream writes each partial's text to stdout as it arrives. Malformed
// records are reported on stderr and skipped; a stream failure ends the
// command with that error.
func printStream[T any](s *stream.Stream[T], text func(T) string) error {
	for ev := range s.Events() {
		switch ev.Type {
		case stream.EventPartial:
			fmt.Print(text(ev.Payload))
		case stream.EventMalformed:
			fmt.Fprintf(os.Stderr, "skipping malformed record: %v\n", ev.Err)
		case stream.EventFailure:
			fmt.Println()
			return ev.Err
		}
	}
	fmt.Println()
	return nil
}
