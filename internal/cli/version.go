package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fprintf(cmd, "asset-reload v%s\n", Version)
			fprintf(cmd, "  Git Commit: %s\n", GitCommit)
			fprintf(cmd, "  Build Date: %s\n", BuildDate)
			fprintf(cmd, "  Go Version: %s\n", runtime.Version())
			fprintf(cmd, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
