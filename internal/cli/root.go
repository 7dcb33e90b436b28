// Package cli implements the subnetctl command-line interface: a thin
// front end over internal/nakamoto, internal/rules, and
// internal/changeengine (spec §9 — another external collaborator of the
// pure core, not the core itself).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "subnetctl",
	Short: "Score and rebalance Internet Computer subnet decentralization",
	Long: `subnetctl scores a subnet's decentralization under the Nakamoto
coefficient model, checks it against the network's business rules, and
searches for membership changes (extend/optimize/replace) that improve it.

It never submits governance proposals or reaches the network itself —
every subcommand reads subnet/pool descriptions from JSON files and prints
its result as JSON, so it composes with whatever registry client or
proposal submitter a caller already has.`,
	SilenceUsage: true,
}

// Execute runs the root command, exiting the process with a nonzero status
// on error (cobra already printed it).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "subnetctl:", err)
		os.Exit(1)
	}
}
