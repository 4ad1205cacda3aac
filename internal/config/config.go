package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	EngineModeProcess   = "process"
	EngineModeEmbedded  = "embedded"
	EngineModeSimulated = "simulated"

	CaptureModeNetstack = "netstack"
	CaptureModeTUN      = "tun"
	CaptureModeNone     = "none"
)

const (
	DefaultConfigPath      = "config.json"
	DefaultEngineBinary    = "xray"
	DefaultStartTimeout    = 10
	DefaultEndpointAddress = "usa3.vpnjantit.com"
	DefaultEndpointPort    = 4443
	DefaultCaptureName     = "axiom0"
	DefaultCaptureAddress  = "10.0.1.1/24"
	DefaultCaptureMTU      = 1500
	DefaultAPIListen       = "127.0.0.1:9090"
	DefaultLogLevel        = "info"
)

var validate *validator.Validate

type Config struct {
	DataDir string  `json:"data_dir" yaml:"data_dir" toml:"data_dir" validate:"required,dir"`
	Link    string  `json:"link" yaml:"link" toml:"link"`
	Engine  Engine  `json:"engine" yaml:"engine" toml:"engine" validate:"required"`
	Capture Capture `json:"capture" yaml:"capture" toml:"capture" validate:"required"`
	API     API     `json:"api" yaml:"api" toml:"api"`
	Log     Log     `json:"log" yaml:"log" toml:"log"`
}

type Engine struct {
	Mode               string   `json:"mode" yaml:"mode" toml:"mode" validate:"required,enginemode"`
	Binary             string   `json:"binary" yaml:"binary" toml:"binary"`
	StartTimeout       int      `json:"start_timeout" yaml:"start_timeout" toml:"start_timeout" validate:"gt=0"`
	Endpoint           Endpoint `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	UseProfileEndpoint bool     `json:"use_profile_endpoint" yaml:"use_profile_endpoint" toml:"use_profile_endpoint"`
}

// Endpoint is the operator configured remote the proxy outbound dials.
type Endpoint struct {
	Address string `json:"address" yaml:"address" toml:"address" validate:"required,endpointhost"`
	Port    int    `json:"port" yaml:"port" toml:"port" validate:"min=1,max=65535"`
}

type Capture struct {
	Mode    string   `json:"mode" yaml:"mode" toml:"mode" validate:"required,capturemode"`
	Name    string   `json:"name" yaml:"name" toml:"name" validate:"required"`
	Address string   `json:"address" yaml:"address" toml:"address" validate:"required,cidr"`
	MTU     int      `json:"mtu" yaml:"mtu" toml:"mtu" validate:"min=576,max=65535"`
	DNS     []string `json:"dns" yaml:"dns" toml:"dns" validate:"dive,ip"`
}

type API struct {
	Listen string `json:"listen" yaml:"listen" toml:"listen" validate:"required,hostname_port"`
}

type Log struct {
	Level      string `json:"level" yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups" validate:"min=0"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days" validate:"min=0"`
}

// StartTimeoutDuration bounds the wait for the engine to report ready.
func (e Engine) StartTimeoutDuration() time.Duration {
	return time.Duration(e.StartTimeout) * time.Second
}

// EngineConfigFile is the name of the engine document inside DataDir.
const EngineConfigFile = "xray.json"

// EngineConfigPath is where the engine document is written before start.
func (c *Config) EngineConfigPath() string {
	return filepath.Join(c.DataDir, EngineConfigFile)
}

// NewConfig creates a new Config instance from the environment
func NewConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return Load(configPath)
}

// Load reads the settings file at path. The format follows the extension:
// .yaml/.yml, .toml, anything else is JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	applyDefaults(&cfg)

	// Create required directories if they don't exist
	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	// Validate the configuration
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return nil, formatValidationErrors(validationErrors)
		}
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if samePath(path, cfg.EngineConfigPath()) {
		return nil, fmt.Errorf("settings file %s is also the engine config path, move it or change data_dir", path)
	}

	return &cfg, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
		return err
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.Mode == "" {
		cfg.Engine.Mode = EngineModeProcess
	}
	if cfg.Engine.Binary == "" {
		cfg.Engine.Binary = DefaultEngineBinary
	}
	if cfg.Engine.StartTimeout == 0 {
		cfg.Engine.StartTimeout = DefaultStartTimeout
	}
	if cfg.Engine.Endpoint.Address == "" {
		cfg.Engine.Endpoint.Address = DefaultEndpointAddress
	}
	if cfg.Engine.Endpoint.Port == 0 {
		cfg.Engine.Endpoint.Port = DefaultEndpointPort
	}

	if cfg.Capture.Mode == "" {
		cfg.Capture.Mode = CaptureModeNetstack
	}
	if cfg.Capture.Name == "" {
		cfg.Capture.Name = DefaultCaptureName
	}
	if cfg.Capture.Address == "" {
		cfg.Capture.Address = DefaultCaptureAddress
	}
	if cfg.Capture.MTU == 0 {
		cfg.Capture.MTU = DefaultCaptureMTU
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = DefaultAPIListen
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *Config) error {
	dirs := []struct {
		path string
		name string
	}{
		{cfg.DataDir, "data"},
	}

	for _, dir := range dirs {
		if dir.path == "" {
			continue
		}
		if err := os.MkdirAll(dir.path, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory at %s: %w",
				dir.name, dir.path, err)
		}
	}

	return nil
}

// Custom validators
func init() {
	validate = validator.New()

	validators := map[string]validator.Func{
		"dir":          validateDir,
		"enginemode":   validateEngineMode,
		"capturemode":  validateCaptureMode,
		"endpointhost": validateEndpointHost,
	}
	for tag, fn := range validators {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

func validateDir(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if info, err := os.Stat(path); err != nil {
		return false
	} else {
		return info.IsDir()
	}
}

func validateEngineMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case EngineModeProcess, EngineModeEmbedded, EngineModeSimulated:
		return true
	default:
		return false
	}
}

func validateCaptureMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case CaptureModeNetstack, CaptureModeTUN, CaptureModeNone:
		return true
	default:
		return false
	}
}

func validateEndpointHost(fl validator.FieldLevel) bool {
	return govalidator.IsHost(fl.Field().String())
}

// formatValidationErrors formats validation errors into a user-friendly error message
func formatValidationErrors(errors validator.ValidationErrors) error {
	var errMsgs []string
	for _, err := range errors {
		errMsgs = append(errMsgs, fmt.Sprintf(
			"field '%s' failed validation: %s",
			err.Field(),
			err.Tag(),
		))
	}
	return fmt.Errorf("validation errors: %v", errMsgs)
}
