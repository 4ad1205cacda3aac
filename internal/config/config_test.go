package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		content     string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name:     "Minimal JSON config gets defaults",
			fileName: "config.json",
			content:  `{"data_dir": "DATA"}`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, EngineModeProcess, cfg.Engine.Mode)
				assert.Equal(t, "xray", cfg.Engine.Binary)
				assert.Equal(t, 10, cfg.Engine.StartTimeout)
				assert.Equal(t, "usa3.vpnjantit.com", cfg.Engine.Endpoint.Address)
				assert.Equal(t, 4443, cfg.Engine.Endpoint.Port)
				assert.False(t, cfg.Engine.UseProfileEndpoint)
				assert.Equal(t, CaptureModeNetstack, cfg.Capture.Mode)
				assert.Equal(t, "10.0.1.1/24", cfg.Capture.Address)
				assert.Equal(t, 1500, cfg.Capture.MTU)
				assert.Equal(t, "127.0.0.1:9090", cfg.API.Listen)
				assert.Equal(t, "info", cfg.Log.Level)
			},
		},
		{
			name:     "Full JSON config",
			fileName: "config.json",
			content: `{
				"data_dir": "DATA",
				"link": "vless://abc@example.com:443?pbk=K",
				"engine": {
					"mode": "simulated",
					"start_timeout": 3,
					"endpoint": {"address": "203.0.113.7", "port": 8443},
					"use_profile_endpoint": true
				},
				"capture": {"mode": "none", "dns": ["1.1.1.1"]},
				"api": {"listen": "0.0.0.0:8080"}
			}`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "vless://abc@example.com:443?pbk=K", cfg.Link)
				assert.Equal(t, EngineModeSimulated, cfg.Engine.Mode)
				assert.Equal(t, 3, cfg.Engine.StartTimeout)
				assert.Equal(t, "203.0.113.7", cfg.Engine.Endpoint.Address)
				assert.Equal(t, 8443, cfg.Engine.Endpoint.Port)
				assert.True(t, cfg.Engine.UseProfileEndpoint)
				assert.Equal(t, CaptureModeNone, cfg.Capture.Mode)
				assert.Equal(t, []string{"1.1.1.1"}, cfg.Capture.DNS)
				assert.Equal(t, "0.0.0.0:8080", cfg.API.Listen)
			},
		},
		{
			name:     "YAML config",
			fileName: "config.yaml",
			content: `
data_dir: DATA
engine:
  mode: embedded
capture:
  mode: tun
  name: utun9
log:
  level: debug
  file: axiom.log
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, EngineModeEmbedded, cfg.Engine.Mode)
				assert.Equal(t, CaptureModeTUN, cfg.Capture.Mode)
				assert.Equal(t, "utun9", cfg.Capture.Name)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "axiom.log", cfg.Log.File)
			},
		},
		{
			name:     "TOML config",
			fileName: "config.toml",
			content: `
data_dir = "DATA"

[engine]
mode = "simulated"

[engine.endpoint]
address = "vpn.example.org"
port = 443
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, EngineModeSimulated, cfg.Engine.Mode)
				assert.Equal(t, "vpn.example.org", cfg.Engine.Endpoint.Address)
				assert.Equal(t, 443, cfg.Engine.Endpoint.Port)
			},
		},
		{
			name:        "Missing data dir",
			fileName:    "config.json",
			content:     `{"engine": {"mode": "process"}}`,
			expectError: true,
		},
		{
			name:        "Unknown engine mode",
			fileName:    "config.json",
			content:     `{"data_dir": "DATA", "engine": {"mode": "magic"}}`,
			expectError: true,
		},
		{
			name:        "Unknown capture mode",
			fileName:    "config.json",
			content:     `{"data_dir": "DATA", "capture": {"mode": "pcap"}}`,
			expectError: true,
		},
		{
			name:        "Invalid endpoint host",
			fileName:    "config.json",
			content:     `{"data_dir": "DATA", "engine": {"endpoint": {"address": "not a host!"}}}`,
			expectError: true,
		},
		{
			name:        "Invalid capture address",
			fileName:    "config.json",
			content:     `{"data_dir": "DATA", "capture": {"address": "10.0.1.1"}}`,
			expectError: true,
		},
		{
			name:        "Malformed JSON",
			fileName:    "config.json",
			content:     `{"data_dir": `,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			dataDir := filepath.Join(tmpDir, "data")
			content := strings.ReplaceAll(tt.content, "DATA", dataDir)

			configPath := filepath.Join(tmpDir, tt.fileName)
			err := os.WriteFile(configPath, []byte(content), 0644)
			require.NoError(t, err)

			t.Setenv("CONFIG_PATH", configPath)

			cfg, err := NewConfig()
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			assert.Equal(t, dataDir, cfg.DataDir)
			assert.DirExists(t, dataDir)
			assert.Equal(t, filepath.Join(dataDir, "xray.json"), cfg.EngineConfigPath())

			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoad_EngineConfigPathCollision(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		expectError bool
	}{
		{name: "settings next to engine config", fileName: "config.json"},
		{name: "settings at engine config path", fileName: "xray.json", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.fileName)
			content := `{"data_dir": "` + filepath.ToSlash(dir) + `"}`
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			cfg, err := Load(path)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, path, cfg.EngineConfigPath())
		})
	}
}

func TestNewConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.json"))
	_, err := NewConfig()
	assert.Error(t, err)
}
