package main

import (
	"context"

	"bank-cards/internal/scheduler"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire every card past its expiration date once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			// Manual runs skip the daily lock so operators can rerun at will.
			return scheduler.NewExpiryJob(a.sweeper, nil, a.log).Run(ctx)
		},
	}
}
