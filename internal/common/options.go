package common

import (
	"axiom-vpn/internal/config"

	"go.uber.org/zap"
)

// ServiceOptions defines common options for service constructors
type ServiceOptions struct {
	Logger *zap.Logger
	Config *config.Config
	Env    string
}

// Option defines a service option modifier
type Option func(*ServiceOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *ServiceOptions) {
		o.Logger = logger
	}
}

// WithConfig supplies an already loaded configuration instead of reading
// CONFIG_PATH during startup.
func WithConfig(cfg *config.Config) Option {
	return func(o *ServiceOptions) {
		o.Config = cfg
	}
}

func WithEnv(env string) Option {
	return func(o *ServiceOptions) {
		o.Env = env
	}
}

// Apply builds ServiceOptions from opts.
func Apply(opts ...Option) *ServiceOptions {
	options := &ServiceOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return options
}
