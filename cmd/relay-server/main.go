// Package main provides the relay server executable: REST API, broker relay
// and schema migrations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "relay-server",
		Short: "Broker relay: persists MQTT messages and fans out user notifications",
		Long: `relay-server connects to an MQTT broker, stores every message delivered on an
active topic, and notifies users on notification/<userID> topics.
All settings come from the environment (see internal/config).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newRelayCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
