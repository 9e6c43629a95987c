package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the restaurant-queue command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "restaurant-queue",
		Short: "Restaurant order queue",
		Long: `restaurant-queue takes diner orders into a first-come queue, tells staff
when to call each party in, and tracks every order from the queue to the table.

Configuration comes from the environment (and a .env file if present).
Run "restaurant-queue serve" to start the HTTP API.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newStaffCmd(),
		newOrdersCmd(),
		newEstimateCmd(),
	)
	return root
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
