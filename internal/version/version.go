// Package version exposes build-time version metadata and the "version"
// Cobra subcommand.
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version, Commit, and BuildTime are populated at build time via
// `-ldflags "-X .../internal/version.Version=... -X .../Commit=... -X .../BuildTime=..."`.
// Their zero values below keep `go run`/test builds self-describing.
var (
	Version   = "0.0.0-dev" //nolint:gochecknoglobals // build-time injected.
	Commit    = "none"      //nolint:gochecknoglobals // build-time injected.
	BuildTime = "unknown"   //nolint:gochecknoglobals // build-time injected.
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Full returns the version, commit, and build time in one line.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// AttachCobraVersionCommand adds a "version" subcommand to root printing Full().
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number and build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
