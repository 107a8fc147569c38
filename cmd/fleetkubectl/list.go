package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/fleetkube/operation"
)

var listFlags struct {
	GroupVersion string
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List resources, following continuation pages to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cluster, err := newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			op := operation.NewList(listFlags.GroupVersion, args[0], globalFlags.Namespace)
			list, err := c.Stream(ctx, op, cluster)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			names := make([]string, 0, len(list.Items))
			for _, item := range list.Items {
				names = append(names, item.GetNamespace()+"/"+item.GetName())
			}
			return printJSON(cmd, names)
		},
	}
	cmd.Flags().StringVar(&listFlags.GroupVersion, "api-version", "v1", "groupVersion of the resource (e.g. v1, apps/v1)")
	return cmd
}
