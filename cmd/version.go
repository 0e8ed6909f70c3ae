// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/care-service/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Long:  `Print the release version, the VCS revision and the Go toolchain the binary was built with`,
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := version.Info()

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "care-service %s\n", info.Version)

	if info.Revision != "" {
		fmt.Fprintf(out, "revision: %s\n", info.Revision)
	}

	if info.GoVersion != "" {
		fmt.Fprintf(out, "go: %s\n", info.GoVersion)
	}

	return nil
}

func init() {
	versionCmd.Flags().Bool("json", false, "Print the build information as JSON")

	rootCmd.AddCommand(versionCmd)
}
