// Package cli provides the command-line interface for dwquery.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/cli/commands"
	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/internal/cli/config"

	// Register the warehouse adapters.
	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/duckdb"
	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/postgres"
	_ "github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/adapters/sqlite"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile, targetFlag string

	rootCmd := &cobra.Command{
		Use:   "dwquery",
		Short: "dwquery - warehouse query builder and SQL-to-OData translator",
		Long: `dwquery builds parameterized SELECT statements for PostgreSQL, DuckDB and
SQLite from declarative query specs, and translates restricted SQL SELECTs
into OData query options.

Values never enter SQL text: they travel as bound parameters, and every
identifier is quoted for the target dialect.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfigWithTarget(cfgFile, targetFlag, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.Verbose)
			if err != nil {
				return err
			}
			logger = logger.With(slog.String("run_id", uuid.NewString()))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", configFile)
				}
				if targetFlag != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using target: %s\n", targetFlag)
				}
			}

			logger.Debug("configuration loaded",
				slog.String("target", cfg.Target.Type),
				slog.String("schema", cfg.Target.Schema),
				slog.String("output", cfg.OutputFormat))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (commit %s, built %s)\n", GitCommit, BuildDate))

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./dwquery.yaml, searched upward)")
	rootCmd.PersistentFlags().StringVarP(&targetFlag, "target", "t", "", "Target environment to use (e.g., dev, staging, prod)")
	rootCmd.PersistentFlags().String("database", "", "Path to a DuckDB or SQLite database file (:memory: for in-memory)")
	rootCmd.PersistentFlags().String("odata-url", "", "OData service root URL")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json|csv|markdown)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewTranslateCommand())
	rootCmd.AddCommand(commands.NewSelectCommand())
	rootCmd.AddCommand(commands.NewMaxCommand())
	rootCmd.AddCommand(commands.NewODataCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		Environment:  config.DefaultEnv,
		OutputFormat: config.DefaultOutput,
		LogLevel:     config.DefaultLogLevel,
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for dwquery.

To load completions:

Bash:
  $ source <(dwquery completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ dwquery completion bash > /etc/bash_completion.d/dwquery
  # macOS:
  $ dwquery completion bash > $(brew --prefix)/etc/bash_completion.d/dwquery

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ dwquery completion zsh > "${fpath[1]}/_dwquery"

Fish:
  $ dwquery completion fish | source

  # To load completions for each session, execute once:
  $ dwquery completion fish > ~/.config/fish/completions/dwquery.fish

PowerShell:
  PS> dwquery completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
