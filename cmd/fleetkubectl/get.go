package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/fleetkube/operation"
)

var getFlags struct {
	GroupVersion string
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <resource> <name>",
		Short: "Get a single resource by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cluster, err := newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			op := operation.NewGet(getFlags.GroupVersion, args[0], globalFlags.Namespace, args[1])
			obj, err := c.Run(ctx, op, cluster)
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}
			return printJSON(cmd, obj.Object)
		},
	}
	cmd.Flags().StringVar(&getFlags.GroupVersion, "api-version", "v1", "groupVersion of the resource (e.g. v1, apps/v1)")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(buf))
	return nil
}
