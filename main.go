package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"git.lost.host/meutraa/lanecut/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); nil != err {
		fmt.Fprintln(os.Stderr, "lanecut:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool, level zap.AtomicLevel) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = level
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func run(args []string, stdout, stderr io.Writer) error {
	app := kingpin.New("lanecut", "Convert 7 lane Bestdori charts to 6 lanes.")
	flags := config.Register(app)
	cmds := register(app)

	command, err := app.Parse(args)
	if nil != err {
		return err
	}
	cfg, err := flags.Resolve()
	if nil != err {
		return err
	}

	// quiet unless something is dropped or fails, the server logs requests
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	if command == cmds.serve.FullCommand() {
		level.SetLevel(zap.InfoLevel)
	}
	logger, err := newLogger(cfg.Verbose, level)
	if nil != err {
		return fmt.Errorf("unable to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e := &env{cfg: cfg, logger: logger, out: stdout, errOut: stderr}
	return cmds.dispatch(ctx, e, command)
}
