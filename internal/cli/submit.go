package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sreekeshm77/ATS-project/internal/tui"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit [resume-file]",
	Short: "Submit a resume to an analysis server from a terminal UI",
	Long: `Submit a resume to a running analysis server and watch the result render
in an interactive terminal UI: phase progress while the server works, then
an animated score dial, sub-score bars and staggered keyword reveals.

The server URL and API key come from the client section of the config file
(client.serverURL, client.apiKey) or the matching ATS_CLIENT_* environment
variables. A job description to match against can be passed inline with
--job-description or from a file with --job-description-file.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

var (
	submitJobDescription     string
	submitJobDescriptionFile string
)

func init() {
	submitCmd.Flags().StringVarP(&submitJobDescription, "job-description", "j", "", "Job description text to match keywords against")
	submitCmd.Flags().StringVar(&submitJobDescriptionFile, "job-description-file", "", "Path to a file containing the job description")
	submitCmd.MarkFlagsMutuallyExclusive("job-description", "job-description-file")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg := configFromContext(cmd.Context())

	jobDescription := submitJobDescription
	if submitJobDescriptionFile != "" {
		content, err := os.ReadFile(submitJobDescriptionFile)
		if err != nil {
			return fmt.Errorf("failed to read job description file: %w", err)
		}
		jobDescription = strings.TrimSpace(string(content))
	}

	return tui.Run(cfg.Client, args[0], jobDescription)
}
