package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata, overridable at link time through -ldflags "-X ...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Show the version, git commit and build date of this ats binary",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("ats version %s\nGit commit: %s\nBuild date: %s\n",
			Version, GitCommit, BuildDate)
	},
}
