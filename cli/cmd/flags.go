// ABOUTME: Shared flags and setup helpers for aigo CLI commands.
// ABOUTME: Precedence is flag over config file over built-in default.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/2389-research/aigo"
	"github.com/2389-research/aigo/cli/config"
)

// defaultOllamaModel is used when neither the flag nor the config names one.
const defaultOllamaModel = "llama3.2"

var (
	// ConfigFlag points at an aigo.yaml config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to an aigo.yaml config file",
	}

	// ProviderFlag selects the backing provider.
	ProviderFlag = &cli.StringFlag{
		Name:    "provider",
		Aliases: []string{"p"},
		Usage:   "Provider to use: gemini, ollama",
	}

	// ModelFlag overrides the provider's default model.
	ModelFlag = &cli.StringFlag{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Model name to generate with",
	}
)

// SharedFlags returns the flags common to all commands.
func SharedFlags() []cli.Flag {
	return []cli.Flag{ConfigFlag, ProviderFlag, ModelFlag}
}

// setup loads the config file named by --config (or the defaults) and builds
// the logger. A log level in the config wins over the AIGO_LOG environment.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	logger := aigo.Setup()
	if cfg.Log != "" {
		if level, err := zapcore.ParseLevel(cfg.Log); err == nil {
			logger = aigo.NewLogger(os.Stderr, level)
		}
	}
	return cfg, logger, nil
}

// resolveString returns the flag value when set, otherwise the config value.
func resolveString(c *cli.Context, name, configValue string) string {
	if v := c.String(name); v != "" {
		return v
	}
	return configValue
}

// resolveProvider picks the provider: flag, then config, then ollama.
func resolveProvider(c *cli.Context, cfg *config.Config) string {
	if p := resolveString(c, "provider", cfg.Provider); p != "" {
		return p
	}
	return "ollama"
}
