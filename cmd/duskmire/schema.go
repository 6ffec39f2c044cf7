// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/duskmire/duskmire/internal/config"
	"github.com/duskmire/duskmire/internal/xdg"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Generate the config file JSON Schema",
		Long: `Generate the JSON Schema for config.yaml files. Editors pick up
the schema for completion and validation.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write schema to file (default: stdout)")
	return cmd
}

func runSchema(cmd *cobra.Command, output string) error {
	data, err := config.GenerateSchema()
	if err != nil {
		return oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}

	if output == "" {
		cmd.Println(string(data))
		return nil
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := xdg.EnsureDir(dir); err != nil {
			return oops.Code("SCHEMA_WRITE_FAILED").With("path", output).Wrap(err)
		}
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return oops.Code("SCHEMA_WRITE_FAILED").With("path", output).Wrap(err)
	}
	cmd.Println("Schema written to", output)
	return nil
}
