package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", pattern)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(tmpFile.Name()) })

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	_ = tmpFile.Close()
	return tmpFile.Name()
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, KeyCaseNone, cfg.Naming.KeyCase)
	assert.Empty(t, cfg.Naming.FieldMappings)
	assert.Equal(t, 3, cfg.Finalize.MaxErrorsShown)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.True(t, cfg.Display.Color)
	assert.False(t, cfg.Dev.Debug)
	assert.False(t, cfg.RewritesKeys())

	idle, err := cfg.IdleTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, idle)
}

func TestConfig_LoadFromYAML(t *testing.T) {
	yamlContent := `
naming:
  key_case: snake
  field_mappings:
    "userId": "uid"
finalize:
  max_errors_shown: 5
server:
  addr: ":9000"
  idle_timeout: 5m
display:
  color: false
dev:
  debug: true
`
	cfg, err := LoadConfig(writeTemp(t, "config_test_*.yml", yamlContent))
	require.NoError(t, err)

	assert.Equal(t, KeyCaseSnake, cfg.Naming.KeyCase)
	assert.Equal(t, "uid", cfg.Naming.FieldMappings["userId"])
	assert.Equal(t, 5, cfg.Finalize.MaxErrorsShown)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "24h", cfg.Server.MaxAge, "unset values keep their defaults")
	assert.False(t, cfg.Display.Color)
	assert.True(t, cfg.Dev.Debug)
	assert.True(t, cfg.RewritesKeys())
}

func TestConfig_LoadFromTOML(t *testing.T) {
	tomlContent := `
[naming]
key_case = "kebab"

[finalize]
max_errors_shown = 1

[server]
addr = "0.0.0.0:7000"
`
	cfg, err := LoadConfig(writeTemp(t, "config_test_*.toml", tomlContent))
	require.NoError(t, err)

	assert.Equal(t, KeyCaseKebab, cfg.Naming.KeyCase)
	assert.Equal(t, 1, cfg.Finalize.MaxErrorsShown)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr)
}

func TestConfig_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		content string
	}{
		{"invalid yaml", "bad_*.yml", "naming: [unclosed"},
		{"invalid toml", "bad_*.toml", "[naming\nkey_case ="},
		{"unknown key case", "bad_*.yml", "naming:\n  key_case: shouting\n"},
		{"negative max errors", "bad_*.yml", "finalize:\n  max_errors_shown: -1\n"},
		{"bad duration", "bad_*.yml", "server:\n  idle_timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeTemp(t, tt.pattern, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestConfig_GetKeyName(t *testing.T) {
	tests := []struct {
		keyCase  string
		mappings map[string]string
		input    string
		expected string
	}{
		{KeyCaseNone, nil, "userName", "userName"},
		{KeyCaseSnake, nil, "userName", "user_name"},
		{KeyCaseCamel, nil, "user_name", "UserName"},
		{KeyCaseLowerCamel, nil, "user_name", "userName"},
		{KeyCaseKebab, nil, "userName", "user-name"},
		{KeyCaseSnake, map[string]string{"ID": "id"}, "ID", "id"},
	}

	for _, tt := range tests {
		t.Run(tt.keyCase+"/"+tt.input, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Naming.KeyCase = tt.keyCase
			if tt.mappings != nil {
				cfg.Naming.FieldMappings = tt.mappings
			}
			assert.Equal(t, tt.expected, cfg.GetKeyName(tt.input))
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	configPath := filepath.Join(root, ".jsonbuilder.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("dev:\n  debug: true\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(nested))

	found := FindConfigFile()
	resolvedFound, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	resolvedExpected, err := filepath.EvalSymlinks(configPath)
	require.NoError(t, err)
	assert.Equal(t, resolvedExpected, resolvedFound)
}

func TestLoadConfigWithCLI(t *testing.T) {
	path := writeTemp(t, "cli_*.yml", "server:\n  addr: \":9000\"\n")

	cfg, err := LoadConfigWithCLI(path, "", false, false)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.True(t, cfg.Display.Color)

	cfg, err = LoadConfigWithCLI(path, ":1234", true, true)
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.Server.Addr)
	assert.True(t, cfg.Dev.Debug)
	assert.False(t, cfg.Display.Color)

	cfg, err = LoadConfigWithCLI("", "", false, false)
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}
