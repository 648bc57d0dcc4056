package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/seantiz/frontier/internal/client"
)

const (
	defaultServer = "http://localhost:8080"
	envServer     = "FRONTIER_SERVER"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontier",
		Short: "Frontier - benchmark sweeps across LLM providers",
		Long: `Frontier runs benchmark sweeps of a fixed scenario suite across many
registered models and providers, under global and per-provider
concurrency limits.

Run "frontier serve" to start the API, then drive it with the
sweep and models commands.`,
		Version:      version,
		SilenceUsage: true,
	}

	server := os.Getenv(envServer)
	if server == "" {
		server = defaultServer
	}
	cmd.PersistentFlags().String("server", server, "Frontier API base URL (env "+envServer+")")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newSweepCommand())
	cmd.AddCommand(newModelsCommand())
	cmd.AddCommand(newLeaderboardCommand())

	return cmd
}

// apiClient builds a client from the --server flag.
func apiClient(cmd *cobra.Command) *client.Client {
	server, _ := cmd.Flags().GetString("server")
	return client.New(server)
}
