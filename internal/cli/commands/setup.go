// Package commands implements the dwquery subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/cli/config"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/cli/render"
	intconfig "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/config"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/dialect"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/odata"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/warehouse"
)

// ErrNoInput is returned when a command has neither an argument, an input
// file nor piped stdin to read from.
var ErrNoInput = errors.New("no input given")

// ErrNoODataURL is returned by the odata commands when no service is configured.
var ErrNoODataURL = errors.New("odata.base_url is not configured\nHint: set it in dwquery.yaml or pass --odata-url")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer
}

// NewCommandContext collects the loaded config and the logger stored by the
// root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    getConfig(),
		Logger: config.GetLogger(cmdContext(cmd)),
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	}
}

// Render writes res in the configured output format.
func (c *CommandContext) Render(res *core.Result) error {
	return render.Result(c.Out, res, c.Cfg.OutputFormat)
}

// Dialect resolves name, or the target's dialect when name is empty.
func (c *CommandContext) Dialect(name string) (*dialect.Dialect, error) {
	if name == "" {
		name = c.Cfg.Target.Type
	}
	return dialect.Lookup(strings.ToLower(name))
}

// OpenWarehouse connects to the configured target. The caller closes it.
func (c *CommandContext) OpenWarehouse(ctx context.Context) (*warehouse.Warehouse, error) {
	return warehouse.Open(ctx, c.Cfg.Target.AdapterConfig(), c.Logger)
}

// ODataClient creates a client for the configured service. The caller closes it.
func (c *CommandContext) ODataClient() (*odata.Client, error) {
	if c.Cfg.OData == nil || c.Cfg.OData.BaseURL == "" {
		return nil, ErrNoODataURL
	}
	return odata.NewClient(*c.Cfg.OData, odata.WithLogger(c.Logger))
}

// getConfig returns the current configuration, or the defaults when the
// root command did not load one.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	target := &core.TargetConfig{Type: intconfig.DefaultTargetType, Database: ":memory:"}
	intconfig.ApplyTargetDefaults(target)
	odataCfg := &core.ODataConfig{}
	intconfig.ApplyODataDefaults(odataCfg)

	return &config.Config{
		Environment:  config.DefaultEnv,
		OutputFormat: config.DefaultOutput,
		LogLevel:     config.DefaultLogLevel,
		Target:       target,
		OData:        odataCfg,
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// pipedInput returns the command's stdin when it is not an interactive
// terminal.
func pipedInput(cmd *cobra.Command) (io.Reader, bool) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		return f, !term.IsTerminal(int(f.Fd()))
	}
	return in, in != nil
}

// readInput returns args joined by spaces, else the content of file, else
// piped stdin.
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case file != "":
		return readFile(file)
	}

	in, ok := pipedInput(cmd)
	if !ok {
		return "", ErrNoInput
	}
	content, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", ErrNoInput
	}
	return string(content), nil
}

func readFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}
