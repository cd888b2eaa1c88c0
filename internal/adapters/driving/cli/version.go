package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/researchbot/researchbot/internal/adapters/driving/mcp"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{skipBootstrap: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("researchbot version %s\n", version)
		cmd.Printf("  mcp server %s, %s %s/%s\n", mcp.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
