// ABOUTME: The models command - lists models on the Ollama server or shows
// ABOUTME: the details of one model.
package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// ModelsCommand returns the models command.
func ModelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List models available on the Ollama server",
		Flags: append(SharedFlags(),
			&cli.StringFlag{
				Name:  "show",
				Usage: "Show details for one model instead of listing",
			},
		),
		Action: modelsAction,
	}
}

func modelsAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logger.Sync()

	client := ollamaClient(cfg)
	client.SetLogger(logger)

	if name := c.String("show"); name != "" {
		info, err := client.ShowModel(c.Context, name)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Printf("family:       %s\n", info.Details.Family)
		fmt.Printf("parameters:   %s\n", info.Details.ParameterSize)
		fmt.Printf("quantization: %s\n", info.Details.QuantizationLevel)
		if info.Template != "" {
			fmt.Printf("template:\n%s\n", info.Template)
		}
		if info.Parameters != "" {
			fmt.Printf("options:\n%s\n", info.Parameters)
		}
		return nil
	}

	resp, err := client.ListModels(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	for _, m := range resp.Models {
		fmt.Printf("%-40s %8s  %s\n", m.Name, m.Details.ParameterSize, m.ModifiedAt.Format("2006-01-02"))
	}
	return nil
}
