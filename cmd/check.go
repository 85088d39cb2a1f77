package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	"tcoracle.dev/pkg/tcoracle/internal/domain"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const manifestFileName = "results.json"

const checkLongDescription = `Run every configured type checker over the given Python files and
directories and record their raw output in a results.json manifest.

Checkers are configured in tcoracle.yaml as a map from name to command; each
runs as "<command...> <file>". A checker that exceeds --checker-timeout is
killed and its output recorded as a timeout.`

// errNoCheckers is returned when the configuration names no analyzer.
var errNoCheckers = errors.New("no checkers configured")

var checkManifestFlag string

// checkCmd represents the check command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <paths...>",
		Short: "Run type checkers and write a results.json manifest",
		Long:  checkLongDescription,
		Args:  cobra.MinimumNArgs(1),
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelKey)
			bindFlagToConfig(cmd.Flags().Lookup(checkerTimeoutFlagName), checkerTimeoutKey)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			checkers := viper.GetStringMapStringSlice(checkersKey)
			if len(checkers) == 0 {
				return errNoCheckers
			}

			paths := parsePaths(args)

			manifest := m.Path(checkManifestFlag)
			if manifest == "" {
				manifest = defaultManifestPath(paths)
			}

			_, err := newWorkflow(cmd, adapter.NopMetrics{}).Check(cmd.Context(), domain.CheckArgs{
				Paths:    paths,
				Manifest: manifest,
				Checkers: checkers,
				Parallel: viper.GetInt(parallelKey),
			})
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}

			return nil
		},
	}

	configureCheckFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func configureCheckFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&checkManifestFlag, manifestFlagName, "", "manifest path (default: results.json in the checked directory)")
	cmd.Flags().IntP(parallelFlagName, "p", defaultParallel, "number of files checked in parallel")
	cmd.Flags().Int(checkerTimeoutFlagName, defaultCheckerTimeout, "seconds before a checker run is killed")
}

// defaultManifestPath places the manifest inside a single checked directory
// and in the working directory otherwise.
func defaultManifestPath(paths []m.Path) m.Path {
	if len(paths) == 1 {
		if info, err := os.Stat(string(paths[0])); err == nil && info.IsDir() {
			return m.Path(filepath.Join(string(paths[0]), manifestFileName))
		}
	}

	return manifestFileName
}
