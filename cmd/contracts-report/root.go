package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"contracts/internal/auth"
	"contracts/internal/cli"
	"contracts/internal/config"
	applog "contracts/internal/log"
	"contracts/internal/report"
)

const msgWrongPassphrase = "Incorrect password. Please enter the correct password to proceed."

var errWrongPassphrase = errors.New(msgWrongPassphrase)

type serviceFactory func(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*report.Service, func(), error)

// app holds what every subcommand needs once the gate has been passed.
type app struct {
	passphrase string
	logLevel   string

	newService serviceFactory
	svc        *report.Service
	close      func()
}

func newApp() *app {
	return &app{newService: cli.NewReportService}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "contracts-report",
		Short: "Pulte contracts pivot from the command line",
		Long: `contracts-report loads the contracts workbook, filters it by community and
series, and prints or exports the Work Type by Plan totals.

Every command requires the passphrase, given with --passphrase or the
CONTRACTS_PASSPHRASE environment variable.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.shutdown,
	}

	root.PersistentFlags().StringVar(&a.passphrase, "passphrase", "", "passphrase for the contracts data (default $CONTRACTS_PASSPHRASE)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(communitiesCmd(a))
	root.AddCommand(seriesCmd(a))
	root.AddCommand(tableCmd(a))
	root.AddCommand(exportCmd(a))

	return root
}

// open loads configuration, runs the gate and builds the report service.
// Nothing touches the source before the passphrase is accepted.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger := cli.SetupLogger(cmd.ErrOrStderr(), level, cfg.LogFormat)

	candidate := a.passphrase
	if !cmd.Flags().Changed("passphrase") {
		candidate = os.Getenv("CONTRACTS_PASSPHRASE")
	}
	if err := auth.Check(auth.NewStaticPassphrase(cfg.Passphrase), candidate); err != nil {
		logger.Warn("Passphrase rejected", applog.FieldOperation, applog.OpLogin)
		return errWrongPassphrase
	}

	svc, closeSource, err := a.newService(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	a.svc, a.close = svc, closeSource
	return nil
}

func (a *app) shutdown(_ *cobra.Command, _ []string) error {
	if a.close != nil {
		a.close()
		a.close = nil
	}
	return nil
}
