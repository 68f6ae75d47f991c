package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/application/editor"
	"github.com/tastyfood/web/internal/application/generation"
	"github.com/tastyfood/web/internal/infrastructure/api"
	"github.com/tastyfood/web/internal/infrastructure/config"
	"github.com/tastyfood/web/internal/infrastructure/container"
	"github.com/tastyfood/web/internal/infrastructure/render"
	"github.com/tastyfood/web/internal/infrastructure/staging"
	"github.com/tastyfood/web/internal/ports/outbound"
	"github.com/tastyfood/web/pkg/logger"
)

// app is the workflow wired for a single command
type app struct {
	logger    *zap.Logger
	store     *staging.Store
	intake    *generation.Intake
	editor    *editor.Service
	renderer  outbound.MarkdownRenderer
	closeFunc func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if stagingDriver != "" {
		cfg.Staging.Driver = stagingDriver
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "console", Service: "recipectl"})
	if err != nil {
		return nil, err
	}

	backing, closeFunc, err := container.OpenStagingBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	renderer, err := terminalRenderer()
	if err != nil {
		_ = closeFunc()
		return nil, err
	}

	client := api.NewClient(cfg, log)
	store := staging.NewProvider(backing, cfg.Staging.TTL, log).ForSession(sessionID)
	generator := generation.NewService(client, nil, container.GenerationConfig(cfg), log)

	return &app{
		logger:    log,
		store:     store,
		intake:    generation.NewIntake(generator, store),
		editor:    editor.NewService(client, renderer, nil, container.EditorConfig(cfg), log),
		renderer:  renderer,
		closeFunc: closeFunc,
	}, nil
}

// context carries the recipe API session of the caller
func (a *app) withBackend(parent context.Context) context.Context {
	if backendSession == "" {
		return parent
	}
	return outbound.WithBackendSession(parent, backendSession)
}

func (a *app) Close() {
	if err := a.closeFunc(); err != nil {
		a.logger.Warn("Failed to close staging", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// print renders markdown for the terminal, falling back to the raw text
func (a *app) print(markdown string) {
	out, err := a.renderer.Render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Print(out)
}

func terminalRenderer() (outbound.MarkdownRenderer, error) {
	if jsonOutput || !render.IsTerminal() {
		return render.Plain(), nil
	}
	return render.NewTerminalRenderer("")
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
