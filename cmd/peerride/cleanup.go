package main

import (
	"github.com/spf13/cobra"
)

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Run one cleanup sweep and exit",
		Long: `Deletes departed trips with their pairing requests and chat messages,
and mail documents older than seven days. Takes the same daily lease as the
scheduler in "serve", so running it from an external cron is safe.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := a.scheduler()
			if err != nil {
				return err
			}
			return sched.RunOnce(ctx)
		},
	}
}
