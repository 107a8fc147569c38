package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/transport"
)

var watchFlags struct {
	GroupVersion string
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <resource>",
		Short: "Watch resources, printing one line per event (type and namespace/name) until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cluster, err := newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			op := operation.NewWatch(watchFlags.GroupVersion, args[0], globalFlags.Namespace)
			sink := func(evt transport.Event) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", evt.Type, evt.Object.GetNamespace(), evt.Object.GetName())
				return nil
			}
			if err := c.Watch(ctx, op, cluster, sink); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&watchFlags.GroupVersion, "api-version", "v1", "groupVersion of the resource (e.g. v1, apps/v1)")
	return cmd
}
