package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"cashbook/internal/backend"
	"cashbook/internal/cli"
	"cashbook/internal/config"
	"cashbook/internal/currency"
	"cashbook/internal/log"

	"github.com/alecthomas/kong"
)

// globals are accepted by every command and override the environment.
type globals struct {
	EnvFile  string `name:"env-file" help:"Load environment variables from this file." default:".env"`
	Ledger   string `help:"Ledger file to open (overrides CASHBOOK_LEDGER_PATH)."`
	Backend  string `help:"Data backend: sqlite or memory (overrides DATA_BACKEND)."`
	LogLevel string `name:"log-level" help:"debug, info, warn or error (overrides LOG_LEVEL)."`
}

// cliCommands lists the commands available from the command line.
type cliCommands struct {
	Globals globals `embed`

	Add    addCmd    `cmd help:"Record a new income or expense."`
	Update updateCmd `cmd help:"Change an existing entry."`
	Rm     rmCmd     `cmd help:"Delete an entry."`
	Show   showCmd   `cmd help:"Print one entry."`
	List   listCmd   `cmd help:"List entries matching a filter."`
	Report reportCmd `cmd help:"Income and expenses bucketed by period."`
	Tags   tagsCmd   `cmd help:"Totals per tag."`
	Rate   rateCmd   `cmd help:"Look up an exchange rate or convert an amount."`
	Events eventsCmd `cmd help:"Print entry events published over AMQP until interrupted."`
}

var commands cliCommands

// app is bound into every command's Run method.
type app struct {
	ctx context.Context
	cfg *config.Config
	out io.Writer

	result *backend.BackendResult
}

// ledger opens the configured backend on first use.
func (a *app) ledger() (backend.Backend, error) {
	if a.result == nil {
		res, err := cli.OpenBackend(a.ctx, a.cfg, a.logger())
		if err != nil {
			return nil, err
		}
		a.result = res
	}
	return a.result.Backend, nil
}

// logger returns the logger carried by the command context.
func (a *app) logger() *log.Logger {
	return log.FromContext(a.ctx)
}

func (a *app) converter() *currency.Converter {
	return cli.NewConverter(a.cfg)
}

func (a *app) close() {
	if a.result == nil || a.result.Cleanup == nil {
		return
	}
	if err := a.result.Cleanup(); err != nil {
		a.logger().Error("Failed to close ledger", log.FieldError, err)
	}
}

func main() {
	kctx := kong.Parse(&commands,
		kong.Name("cashbook"),
		kong.Description("Track tagged, multi-currency income and expenses."))
	kctx.FatalIfErrorf(run(kctx, &commands.Globals))
}

func run(kctx *kong.Context, g *globals) error {
	cli.LoadEnvFile(g.EnvFile)
	applyOverrides(g)

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(log.WithLogger(context.Background(), logger))
	defer stop()

	a := &app{ctx: ctx, cfg: cfg, out: os.Stdout}
	defer a.close()
	if err := kctx.Run(a); err != nil {
		logger.Debug("Command failed", log.FieldError, err, log.FieldErrorType, log.ErrorType(err))
		return err
	}
	return nil
}

// applyOverrides exports flag values so config.Load sees them.
func applyOverrides(g *globals) {
	set := func(key, value string) {
		if value != "" {
			os.Setenv(key, value)
		}
	}
	set("CASHBOOK_LEDGER_PATH", g.Ledger)
	set("DATA_BACKEND", g.Backend)
	set("LOG_LEVEL", g.LogLevel)
}

func printf(a *app, format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
