package cli

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"studio-service/internal/app"
	"studio-service/internal/config"
)

type commandContext struct {
	envFile    *string
	jsonOutput *bool

	// build is replaced in tests.
	build func(ctx context.Context, envFile string) (*app.App, error)

	appOnce sync.Once
	app     *app.App
	appErr  error
}

func newCommandContext(envFile *string, jsonOutput *bool) *commandContext {
	return &commandContext{
		envFile:    envFile,
		jsonOutput: jsonOutput,
		build:      buildApp,
	}
}

func buildApp(ctx context.Context, envFile string) (*app.App, error) {
	var files []string
	if envFile != "" {
		files = []string{envFile}
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	app.InitLogger(cfg.Logger)
	return app.New(ctx, cfg)
}

func (c *commandContext) ensureApp(ctx context.Context) (*app.App, error) {
	c.appOnce.Do(func() {
		var path string
		if c.envFile != nil {
			path = strings.TrimSpace(*c.envFile)
		}
		c.app, c.appErr = c.build(ctx, path)
	})
	return c.app, c.appErr
}

func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := c.ensureApp(cmd.Context())
	if err != nil {
		return err
	}
	return fn(a)
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *commandContext) wantJSON() bool {
	return c.jsonOutput != nil && *c.jsonOutput
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
