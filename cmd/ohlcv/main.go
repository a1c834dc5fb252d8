// OHLCV Fetcher CLI
// This application downloads historical OHLCV (Open, High, Low, Close, Volume)
// candles for one Delta Exchange symbol over a date range and writes them to
// a delimited file.
//
// Usage:
//
//	ohlcv fetch --symbol BTCUSD --start 2021-01-01 --end 2021-01-05
//	ohlcv fetch                      # prompts for symbol and dates
//	ohlcv symbols --filter ETH
//	ohlcv top --n 10
//
// For detailed help on any command, use: ohlcv <command> --help
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnayoung/go-ohlcv-fetcher/internal/config"
	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/exchange"
	"github.com/johnayoung/go-ohlcv-fetcher/internal/logger"
)

// CLI version information
const (
	Version = "1.0.0"
	AppName = "ohlcv"
)

// CLI holds the components shared by every command
type CLI struct {
	configPath string
	envFile    string
	config     *config.AppConfig
	logs       *logger.LoggerManager
	logger     *slog.Logger
	exchange   exchange.Exchange

	// newExchange builds the exchange client once configuration is loaded
	newExchange func(cfg *config.AppConfig, logger *slog.Logger) exchange.Exchange

	// now is the clock used to truncate future ranges
	now func() time.Time

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// main is the entry point for the CLI application
func main() {
	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return newCLI(stdin, stdout, stderr).execute(ctx, args)
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer) *CLI {
	return &CLI{
		newExchange: newDeltaExchange,
		now:         time.Now,
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
	}
}

// execute runs the command tree and closes the log output afterwards
func (cli *CLI) execute(ctx context.Context, args []string) int {
	root := cli.newRootCommand()
	root.SetArgs(args)
	root.SetIn(cli.stdin)
	root.SetOut(cli.stdout)
	root.SetErr(cli.stderr)

	err := root.ExecuteContext(ctx)
	if cli.logs != nil {
		_ = cli.logs.Close()
	}
	if err == nil {
		return apperr.ExitSuccess
	}

	fmt.Fprintf(cli.stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode maps an error to the process exit status
func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return apperr.ExitInterrupt
	}
	return apperr.ExitCode(err)
}

func newDeltaExchange(cfg *config.AppConfig, logger *slog.Logger) exchange.Exchange {
	return exchange.NewDeltaClient(exchange.ClientConfig{
		BaseURL:   cfg.Exchange.BaseURL,
		Timeout:   cfg.Exchange.Timeout,
		UserAgent: cfg.Exchange.UserAgent,
	}, logger)
}

// newRootCommand builds the command tree
func (cli *CLI) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           AppName,
		Short:         "Download historical OHLCV candles from Delta Exchange",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.initialize(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cli.configPath, "config", "", "config file (default: ./ohlcv.yaml or $HOME/.config/ohlcv/ohlcv.yaml)")
	flags.StringVar(&cli.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded into the environment, empty to skip")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")
	flags.String("base-url", exchange.DefaultBaseURL, "exchange REST API base URL")

	root.AddCommand(
		cli.newFetchCommand(),
		cli.newSymbolsCommand(),
		cli.newTopCommand(),
		cli.newVersionCommand(),
	)

	return root
}

// initialize loads configuration, sets up logging and creates the exchange client
func (cli *CLI) initialize(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	bootstrap := slog.New(slog.NewTextHandler(cli.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cm := config.NewConfigManager(cli.configPath, bootstrap)
	cm.SetEnvFile(cli.envFile)
	if err := cm.BindFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := cm.LoadConfig(cmd.Context())
	if err != nil {
		return err
	}
	cli.config = cfg

	logs, err := cli.setupLogging(cfg.Logging)
	if err != nil {
		return apperr.Configuration(fmt.Errorf("failed to setup logging: %w", err))
	}
	cli.logs = logs
	cli.logger = logs.GetComponentLogger(logger.ComponentCLI)

	cli.exchange = cli.newExchange(cfg, logs.GetComponentLogger(logger.ComponentExchange))

	cmd.SetContext(logger.NewRunContext(cmd.Context()))
	cli.logger.DebugContext(cmd.Context(), "initialized",
		"command", cmd.Name(),
		"config_file", cm.ConfigFileUsed(),
		"base_url", cfg.Exchange.BaseURL)
	cli.logger.DebugContext(cmd.Context(), "effective configuration", "config", cfg.String())

	return nil
}

// setupLogging sends console logs to the command's writers so they can be captured
func (cli *CLI) setupLogging(cfg config.LoggingConfig) (*logger.LoggerManager, error) {
	switch cfg.Output {
	case "stdout":
		return logger.NewLoggerManagerWithWriter(cfg, cli.stdout), nil
	case "", "stderr":
		return logger.NewLoggerManagerWithWriter(cfg, cli.stderr), nil
	default:
		return logger.NewLoggerManager(cfg)
	}
}

func (cli *CLI) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", AppName, Version)
		},
	}
}
