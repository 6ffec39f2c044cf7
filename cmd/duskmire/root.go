// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the duskmire CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duskmire",
		Short: "Duskmire - server-authoritative combat engine",
		Long: `Duskmire runs the server-side combat resolution engine: seeded
damage rolls, attack scheduling, combat state tracking and death handoff.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}
