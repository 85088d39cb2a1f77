// Package cmd provides the root command and CLI setup for tcoracle.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	"tcoracle.dev/pkg/tcoracle/internal/controller"
	"tcoracle.dev/pkg/tcoracle/internal/domain"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore

// newWorkflow builds the workflow for one command run, after flags and
// config have been resolved.
var newWorkflow = buildWorkflow

// verboseFlag raises the log level to Debug.
var verboseFlag bool

func init() {
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewLocalReportStore(fsAdapter)
}

const rootLongDescription = `tcoracle establishes runtime ground truth for Python type-safety defects
and judges static type checkers against it.

Each example is escalated through three levels until one proves a fault:
  1. direct execution with runtime type enforcement
  2. coverage-guided synthetic calls at uncovered functions
  3. type-targeted mutants that must crash with a type fault`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tcoracle",
		Short:         "Tiered runtime oracle for Python type checkers",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := loadDotEnv(dotEnvFileName); err != nil {
				return fmt.Errorf("load %s: %w", dotEnvFileName, err)
			}

			configureLogger("", verboseFlag)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// buildWorkflow wires the adapters and the three oracle levels from the
// resolved configuration.
func buildWorkflow(cmd *cobra.Command, metrics adapter.MetricsRecorder) domain.Workflow {
	python := viper.GetString(pythonKey)

	parser := adapter.NewTreeSitterPythonAdapter()
	runner := adapter.NewLocalPythonRunnerAdapter(python, seconds(sandboxTimeoutKey))
	coverage := adapter.NewLocalCoverageAdapter(python, seconds(coverageRunKey), seconds(coverageReportKey), fsAdapter)

	sandbox := domain.NewSandbox(runner)
	enforcer := domain.NewEnforcer(parser, sandbox)
	signatures := domain.NewSignatureExtractor(parser, 0)
	synth := domain.NewSynthesizer()
	maxCases := viper.GetInt(maxCasesKey)

	oracle := domain.NewOracle(
		domain.NewLevel1(sandbox, enforcer, domain.NewPatternAnalyzer(parser), signatures, synth, maxCases),
		domain.NewLevel2(sandbox, enforcer, signatures, coverage, synth, maxCases, viper.GetFloat64(coverageThresholdKey)),
		domain.NewLevel3(sandbox, enforcer, domain.NewMutagen(parser, viper.GetInt(perCategoryKey)), viper.GetInt(maxMutantsKey)),
		domain.NewVerdictSynthesizer(viper.GetStringMapString(classifiersKey)),
		metrics,
		viper.GetInt64(seedKey),
	)

	analyzers := adapter.NewLocalAnalyzerRunnerAdapter(seconds(checkerTimeoutKey))
	ui := controller.NewUI(cmd, controller.IsTTY(cmd.OutOrStdout()))

	return domain.NewWorkflow(fsAdapter, reportStore, analyzers, ui, oracle)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
