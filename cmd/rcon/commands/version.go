package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildVersion is set at build time via ldflags.
var buildVersion = "dev"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print rcon build information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("rcon %s\n", buildVersion)
		},
	}
}
