package app

import (
	"context"
	"testing"
	"time"

	"axiom-vpn/internal/common"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

// TestApplication runs the full module graph under fxtest.
type TestApplication struct {
	tb      testing.TB
	testApp *fxtest.App
	options []fx.Option
	service *common.ServiceOptions
}

func NewTestApplication(tb testing.TB, opts ...common.Option) *TestApplication {
	return &TestApplication{
		tb:      tb,
		service: common.Apply(opts...),
	}
}

func (ta *TestApplication) WithOption(opt fx.Option) *TestApplication {
	ta.options = append(ta.options, opt)
	return ta
}

func (ta *TestApplication) Start(ctx context.Context) error {
	testOptions := []fx.Option{
		configOption(ta.service),
		Modules(),
		fx.Provide(
			func() *zap.Logger { return ta.service.Logger },
			func() string { return ta.service.Env },
		),
		fx.Invoke(registerHooks),
		fx.NopLogger,
		fx.StartTimeout(10 * time.Second),
		fx.StopTimeout(10 * time.Second),
	}

	// Add user-provided options
	testOptions = append(testOptions, ta.options...)

	ta.testApp = fxtest.New(ta.tb, testOptions...)
	return ta.testApp.Start(ctx)
}

func (ta *TestApplication) Stop(ctx context.Context) error {
	if ta.testApp != nil {
		return ta.testApp.Stop(ctx)
	}
	return nil
}
