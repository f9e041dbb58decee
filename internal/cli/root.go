package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tripledger/bookings/internal/config"
	"github.com/tripledger/bookings/internal/models"
	"github.com/tripledger/bookings/pkg/logger"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type globals struct {
	cfg   *config.Config
	debug bool
}

func NewRootCmd(cfg *config.Config) *cobra.Command {
	g := &globals{cfg: cfg}

	root := &cobra.Command{
		Use:           "bookings",
		Short:         "Exports past Booking.com reservations to CSV.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetDebug(g.debug)
		},
	}
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "verbose logging and page snapshots")

	root.AddCommand(
		newExportCmd(g),
		newExtractCmd(g),
		newServeCmd(g),
		newCacheCmd(g),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, config.Load(), nil)
}

func run(ctx context.Context, cfg *config.Config, args []string) int {
	log := logger.Log

	root := NewRootCmd(cfg)
	if args != nil {
		root.SetArgs(args)
	}

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		log.Error().Err(exitErr.Err).Int("code", exitErr.Code).Msg("bookings failed")
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("interrupted")
		return 130
	}
	log.Error().Err(err).Msg("bookings failed")
	return 1
}

func parseDateFlag(name, value string) (*models.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := models.ParseISODate(value)
	if err != nil {
		return nil, &ExitError{Code: 2, Err: fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, value)}
	}
	return &d, nil
}
