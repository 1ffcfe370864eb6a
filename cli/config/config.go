// ABOUTME: Config file schema for the aigo CLI.
// ABOUTME: All values are optional defaults; command-line flags override them.
package config

import "fmt"

// Config represents an aigo.yaml configuration file. Every field is optional
// and acts as a default for the matching CLI flag; flags always win.
type Config struct {
	Provider string       `yaml:"provider"`
	Log      string       `yaml:"log"`
	Gemini   GeminiConfig `yaml:"gemini"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

// GeminiConfig holds Gemini client defaults from the config file.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// OllamaConfig holds Ollama client defaults from the config file.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Provider: "ollama"}
}

// Validate checks cross-field constraints that YAML decoding cannot.
func (c *Config) Validate() error {
	switch c.Provider {
	case "", "ollama", "gemini":
	default:
		return fmt.Errorf("unknown provider %q (want gemini or ollama)", c.Provider)
	}
	return nil
}
