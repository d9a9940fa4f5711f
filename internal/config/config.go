// Package config loads process configuration from the environment, with a
// best-effort .env file on top. Missing credentials are startup-time fatal
// conditions for the command that needs them, never runtime surprises.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Gateway modes.
const (
	ModeSSE   = "sse"
	ModeStdio = "stdio"
)

// Gateway configures the tool gateway process.
type Gateway struct {
	APIKey  string
	APIHost string
	Port    int
	Mode    string
	Debug   bool
}

// Relay configures the assistant relay process.
type Relay struct {
	MCPHost     string
	MCPPort     int
	Port        int
	Provider    string
	OpenAIModel string
	GroqModel   string
	OpenAIKey   string
	GroqKey     string
	Debug       bool
}

// MCPURL is the gateway's event-stream endpoint as seen from the relay.
func (r Relay) MCPURL() string {
	return fmt.Sprintf("http://%s:%d", r.MCPHost, r.MCPPort)
}

// Model returns the model name for the selected provider.
func (r Relay) Model() string {
	if r.Provider == "groq" {
		return r.GroqModel
	}
	return r.OpenAIModel
}

// ProviderKey returns the API key for the selected provider.
func (r Relay) ProviderKey() string {
	if r.Provider == "groq" {
		return r.GroqKey
	}
	return r.OpenAIKey
}

// LoadDotenv loads a .env file from the working directory or its parent,
// if one exists. Real environment variables win over file values.
func LoadDotenv() {
	for _, path := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// LoadGateway reads gateway configuration. A missing platform API key is a
// fatal error.
func LoadGateway() (Gateway, error) {
	v := newViper()
	v.SetDefault("OPENALGO_API_HOST", "http://127.0.0.1:5000")
	v.SetDefault("SERVER_PORT", 8001)
	v.SetDefault("SERVER_MODE", ModeSSE)

	cfg := Gateway{
		APIKey:  v.GetString("OPENALGO_API_KEY"),
		APIHost: v.GetString("OPENALGO_API_HOST"),
		Port:    v.GetInt("SERVER_PORT"),
		Mode:    strings.ToLower(v.GetString("SERVER_MODE")),
		Debug:   v.GetBool("SERVER_DEBUG"),
	}
	if cfg.APIKey == "" {
		return Gateway{}, fmt.Errorf("OPENALGO_API_KEY must be set in the environment or .env file")
	}
	if cfg.Mode != ModeSSE && cfg.Mode != ModeStdio {
		return Gateway{}, fmt.Errorf("SERVER_MODE must be %q or %q, got %q", ModeSSE, ModeStdio, cfg.Mode)
	}
	return cfg, nil
}

// LoadRelay reads relay configuration. A missing key for the selected LLM
// provider is a fatal error.
func LoadRelay() (Relay, error) {
	v := newViper()
	v.SetDefault("MCP_HOST", "localhost")
	v.SetDefault("MCP_PORT", 8001)
	v.SetDefault("APP_PORT", 8000)
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("OPENAI_MODEL", "gpt-4o")
	v.SetDefault("GROQ_MODEL", "llama-3.1-70b-versatile")

	cfg := Relay{
		MCPHost:     v.GetString("MCP_HOST"),
		MCPPort:     v.GetInt("MCP_PORT"),
		Port:        v.GetInt("APP_PORT"),
		Provider:    strings.ToLower(v.GetString("LLM_PROVIDER")),
		OpenAIModel: v.GetString("OPENAI_MODEL"),
		GroqModel:   v.GetString("GROQ_MODEL"),
		OpenAIKey:   v.GetString("OPENAI_API_KEY"),
		GroqKey:     v.GetString("GROQ_API_KEY"),
		Debug:       v.GetBool("SERVER_DEBUG"),
	}
	if cfg.Provider != "openai" && cfg.Provider != "groq" {
		return Relay{}, fmt.Errorf("LLM_PROVIDER must be \"openai\" or \"groq\", got %q", cfg.Provider)
	}
	if cfg.ProviderKey() == "" {
		name := "OPENAI_API_KEY"
		if cfg.Provider == "groq" {
			name = "GROQ_API_KEY"
		}
		return Relay{}, fmt.Errorf("%s must be set for provider %q", name, cfg.Provider)
	}
	return cfg, nil
}
