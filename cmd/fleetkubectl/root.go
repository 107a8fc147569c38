package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/fleetkube/internal/telemetry"
)

// globalFlags are the persistent flags every subcommand reads to build a
// client.Client against exactly one cluster.
var globalFlags struct {
	Kubeconfig  string
	Context     string
	Server      string
	Namespace   string
	MetricsAddr string
}

// rootCmd represents the base command for fleetkubectl. It is the entry
// point when the binary is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fleetkubectl",
	Short: "Discovery-driven Kubernetes API client CLI",
	Long: `fleetkubectl is a thin command-line wrapper around the fleetkube
client library. It resolves every resource argument against the target
cluster's live discovery document rather than a compiled-in type
registry, so it works unmodified against CRDs it has never seen.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		metrics, shutdown, err := startMetrics(telemetry.DefaultConfig(), globalFlags.MetricsAddr)
		if err != nil {
			return err
		}
		activeMetrics = metrics
		metricsShutdown = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsShutdown == nil {
			return nil
		}
		return metricsShutdown(context.Background())
	},
}

// metricsShutdown stops whatever instrumentation PersistentPreRunE started.
var metricsShutdown func(context.Context) error

// activeMetrics is the *telemetry.Metrics PersistentPreRunE built, wired
// into every client.Client newClient constructs for the rest of this
// process's lifetime. Nil when metrics are disabled.
var activeMetrics *telemetry.Metrics

// SetVersion sets the version for the root command, injected at build time
// from main.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "fleetkubectl version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Kubeconfig, "kubeconfig", defaultKubeconfigPath(), "path to a kubeconfig file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Context, "context", "", "kubeconfig context to use (default: current-context)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Server, "cluster-name", "default", "name to register the resolved connection under")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Namespace, "namespace", "n", "", "namespace (empty means all-namespaces for list/watch)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.MetricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090 (empty disables the metrics server)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newExecCmd())
}

func defaultKubeconfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.kube/config"
	}
	return ""
}
