// Package main provides the entry point for the TastyFood web frontend.
// The frontend turns a free-text prompt into a staged recipe draft and lets
// the cook edit and publish it through the recipe API.
package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/infrastructure/container"
)

func main() {
	app := fx.New(
		container.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)

	app.Run()
}
