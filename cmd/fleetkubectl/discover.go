package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Refresh the cluster's discovery cache and confirm connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cluster, err := newClient()
			if err != nil {
				return err
			}
			if err := c.RunDiscovery(cmd.Context(), cluster); err != nil {
				return fmt.Errorf("discover: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discovery refreshed for cluster %q\n", cluster)
			return nil
		},
	}
}
