package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/transport"
)

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <pod> -- <command...>",
		Short: "Run a command in a pod over the exec subresource, streaming stdout/stderr",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cluster, err := newClient()
			if err != nil {
				return err
			}
			if globalFlags.Namespace == "" {
				return errors.New("exec: --namespace is required")
			}

			pod := args[0]
			command := args[1:]
			op := operation.NewConnect("v1", "pods", globalFlags.Namespace, pod, "exec")

			sess, err := c.Connect(cmd.Context(), op, cluster)
			if err != nil {
				return fmt.Errorf("exec: %w", err)
			}
			defer sess.Close()

			// The exec subresource takes its command/container/tty options as
			// query parameters on the upgrade request, which operation.Options
			// doesn't model; send the command line over the stdin channel once
			// connected instead, matching a shell that execs its first line.
			if err := sess.Send(transport.ChannelStdin, []byte(strings.Join(command, " ")+"\n")); err != nil {
				return fmt.Errorf("exec: writing command: %w", err)
			}

			for {
				frame, err := sess.Recv()
				if err != nil {
					if errors.Is(err, io.EOF) {
						return nil
					}
					return fmt.Errorf("exec: %w", err)
				}
				switch frame.Channel {
				case transport.ChannelStdout:
					cmd.OutOrStdout().Write(frame.Data)
				case transport.ChannelStderr:
					cmd.ErrOrStderr().Write(frame.Data)
				case transport.ChannelError:
					return fmt.Errorf("exec: %s", frame.Data)
				}
			}
		},
	}
	return cmd
}
