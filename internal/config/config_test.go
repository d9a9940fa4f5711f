package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGatewayDefaults(t *testing.T) {
	t.Setenv("OPENALGO_API_KEY", "k")
	t.Setenv("OPENALGO_API_HOST", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("SERVER_MODE", "")

	cfg, err := LoadGateway()
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.APIHost)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, ModeSSE, cfg.Mode)
	assert.False(t, cfg.Debug)
}

func TestLoadGatewayRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENALGO_API_KEY", "")

	_, err := LoadGateway()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENALGO_API_KEY")
}

func TestLoadGatewayRejectsUnknownMode(t *testing.T) {
	t.Setenv("OPENALGO_API_KEY", "k")
	t.Setenv("SERVER_MODE", "websocket")

	_, err := LoadGateway()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_MODE")
}

func TestLoadGatewayStdioMode(t *testing.T) {
	t.Setenv("OPENALGO_API_KEY", "k")
	t.Setenv("SERVER_MODE", "STDIO")

	cfg, err := LoadGateway()
	require.NoError(t, err)
	assert.Equal(t, ModeStdio, cfg.Mode)
}

func TestLoadRelayDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MCP_HOST", "")
	t.Setenv("MCP_PORT", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("GROQ_MODEL", "")

	cfg, err := LoadRelay()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model())
	assert.Equal(t, "sk-test", cfg.ProviderKey())
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "http://localhost:8001", cfg.MCPURL())
}

func TestLoadRelayGroqProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("GROQ_MODEL", "")

	cfg, err := LoadRelay()
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.Provider)
	assert.Equal(t, "llama-3.1-70b-versatile", cfg.Model())
	assert.Equal(t, "gsk-test", cfg.ProviderKey())
}

func TestLoadRelayRequiresProviderKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "")

	_, err := LoadRelay()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")
}

func TestLoadRelayRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")

	_, err := LoadRelay()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_PROVIDER")
}
