package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const unknownVersion = "unknown"

// buildVersion returns the module and toolchain versions baked into the binary.
func buildVersion() (tool, goVersion string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknownVersion, unknownVersion
	}

	tool = info.Main.Version
	if tool == "" {
		tool = unknownVersion
	}

	return tool, info.GoVersion
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tcoracle, Go and interpreter versions",
		Long: `Print the tcoracle build version, the Go toolchain it was built with and the
Python interpreter the sandbox is configured to run.`,
		Run: func(cmd *cobra.Command, _ []string) {
			tool, goVersion := buildVersion()

			cmd.Printf("tcoracle %s\n", tool)
			cmd.Printf("go:      %s\n", goVersion)
			cmd.Printf("python:  %s\n", viper.GetString(pythonKey))
		},
	}
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
