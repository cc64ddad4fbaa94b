package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo is printed by the version command.
type BuildInfo struct {
	Version       string `json:"version" yaml:"version"`
	Commit        string `json:"commit" yaml:"commit"`
	BuildDate     string `json:"build_date" yaml:"build_date"`
	GoVersion     string `json:"go_version" yaml:"go_version"`
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return PrintResult(cmd, BuildInfo{
				Version:       Version,
				Commit:        GitCommit,
				BuildDate:     BuildDate,
				GoVersion:     runtime.Version(),
				SchemaVersion: cliCtx.Config.Featurizer.SchemaVersion(),
			})
		},
	}
}
