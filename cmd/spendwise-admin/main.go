package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spendwise/internal/auth"
	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	applog "spendwise/internal/log"
	"spendwise/internal/repository"
	"spendwise/internal/services"
)

var version = "dev"

// app carries what every subcommand needs. The store is opened lazily so
// tests can inject one.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	store   repository.Store
	cleanup backend.CleanupFunc

	stdin  io.Reader
	stdout io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "spendwise-admin",
		Short:         "Administer a spendwise deployment",
		Long:          `Run database migrations and manage user accounts without going through the HTTP API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)

	root.AddCommand(migrateCmd(a))
	root.AddCommand(userCmd(a))
	root.AddCommand(budgetCmd(a))
	return root
}

func (a *app) open(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	backendCfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	// Admin writes bypass the event stream.
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	a.store = res.Store
	a.cleanup = res.Cleanup
	return nil
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.cleanup = nil
	return err
}

func (a *app) accounts() *services.AccountService {
	return services.NewAccountService(a.store, auth.NewTokenIssuer(a.cfg.JWTSecret, a.cfg.JWTTTL), a.logger)
}

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	a := &app{cfg: cfg, logger: logger, stdin: os.Stdin, stdout: os.Stdout}
	err := newRootCmd(a).ExecuteContext(ctx)
	_ = a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
