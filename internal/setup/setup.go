// Package setup registers the cohort MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key the MCP server is registered under
const ServerName = "tso500-cohort-explorer"

// BinaryName is the MCP server executable
const BinaryName = "mcp-server"

// DesktopConfig represents the desktop client configuration file structure.
type DesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	// Other keys of the file are kept untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the registration.
type Options struct {
	BinaryPath string // MCP server binary; searched for when empty
	ConfigPath string // engine config.yaml passed with --config
	LogLevel   string
}

// DesktopConfigPath returns the path of the desktop client config file.
func DesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadDesktopConfig loads the desktop configuration; a missing file is an empty config.
func LoadDesktopConfig(path string) (*DesktopConfig, error) {
	config := &DesktopConfig{MCPServers: map[string]MCPServerConfig{}, Extra: map[string]json.RawMessage{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.Extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.Extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.Extra, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = map[string]MCPServerConfig{}
	}
	return config, nil
}

// SaveDesktopConfig writes the configuration, creating its directory.
func SaveDesktopConfig(path string, config *DesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(config.Extra)+1)
	for k, v := range config.Extra {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the cohort MCP server entry in the config at path.
func Register(path string, opts Options) (MCPServerConfig, error) {
	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		found, err := findBinary()
		if err != nil {
			return MCPServerConfig{}, err
		}
		binaryPath = found
	}

	entry := MCPServerConfig{Command: binaryPath}
	if opts.ConfigPath != "" {
		abs, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			return MCPServerConfig{}, fmt.Errorf("resolving config path: %w", err)
		}
		entry.Args = []string{"--config", abs}
	}
	if opts.LogLevel != "" {
		entry.Env = map[string]string{"COHORT_LOGGING_LEVEL": opts.LogLevel}
	}

	config, err := LoadDesktopConfig(path)
	if err != nil {
		return MCPServerConfig{}, err
	}
	config.MCPServers[ServerName] = entry
	if err := SaveDesktopConfig(path, config); err != nil {
		return MCPServerConfig{}, err
	}
	return entry, nil
}

// Status reports the registered entry and any problems with it.
func Status(path string) (*MCPServerConfig, []string, error) {
	config, err := LoadDesktopConfig(path)
	if err != nil {
		return nil, nil, err
	}
	entry, ok := config.MCPServers[ServerName]
	if !ok {
		return nil, []string{ServerName + " is not registered"}, nil
	}

	var issues []string
	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		issues = append(issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case info.Mode()&0o111 == 0:
		issues = append(issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	for i, arg := range entry.Args {
		if arg == "--config" && i+1 < len(entry.Args) {
			if _, err := os.Stat(entry.Args[i+1]); err != nil {
				issues = append(issues, fmt.Sprintf("engine config not found: %s", entry.Args[i+1]))
			}
		}
	}
	return &entry, issues, nil
}

// findBinary looks for the server binary on PATH and in common locations.
func findBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + BinaryName,
		"./bin/" + BinaryName,
		filepath.Join(os.Getenv("HOME"), ".local", "bin", BinaryName),
		"/usr/local/bin/" + BinaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary '%s' not found in common locations", BinaryName)
}
