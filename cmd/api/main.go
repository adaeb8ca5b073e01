package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"livepoll/internal/app/bootstrap"
	"livepoll/internal/platform/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

//go:generate swag init -g main.go -d .,../../contexts/polling/vote-tally-engine -o ../../internal/platform/httpserver/docs --outputTypes go

// API process entrypoint.
// Data flow:
// 1) Load config (flags, then environment, then optional config file).
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP until SIGINT/SIGTERM, then drain.
//
// @title livepoll API
// @version 1.0
// @description Real-time poll voting with one vote per session and live result streams.
// @BasePath /
func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "livepoll-api",
		Short:         "Serve poll voting and live results over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("http-port", "8080", "HTTP listen port or host:port")
	flags.String("ledger-backend", config.LedgerMemory, "vote ledger backend: memory, postgres or bolt")
	flags.String("counter-backend", config.CounterMemory, "vote counter backend: memory or redis")
	flags.String("poll-seed-file", "", "YAML/JSON/TOML file with a top-level polls list")
	flags.String("config-file", "", "optional config file read by viper")
	flags.String("log-level", "info", "debug, info, warn or error")
	bindFlags(v, flags)
	return cmd
}

// bindFlags maps every flag onto the matching snake_case config key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		_ = v.BindPFlag(config.KeyFromFlag(flag.Name), flag)
	})
}

func run(parent context.Context, v *viper.Viper) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}
	app, err := bootstrap.BuildAPIFromConfig(cfg, bootstrap.NewLogger(cfg, os.Stdout))
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()
	return app.Run(ctx)
}
