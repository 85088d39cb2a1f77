package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tcoracle.dev/pkg/tcoracle/internal/adapter"
	"tcoracle.dev/pkg/tcoracle/internal/domain"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const evalLongDescription = `Evaluate every example of a results.json manifest with the tiered oracle
and judge each checker's output against the runtime evidence.

The report is written to evaluation_tiered.json next to the manifest unless
--output is given. Finished examples are journaled under ` + cacheDir + `/
so an interrupted run resumes where it stopped; --no-cache disables this.`

var evalOutputFlag string

// evalCmd represents the eval command.
var evalCmd = newEvalCmd()

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <results.json>",
		Short: "Evaluate a checker manifest with the tiered oracle",
		Long:  evalLongDescription,
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindFlagToConfig(cmd.Flags().Lookup(maxLevelFlagName), maxLevelKey)
			bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelKey)
			bindFlagToConfig(cmd.Flags().Lookup(noCacheFlagName), cacheDisabledKey)
			bindFlagToConfig(cmd.Flags().Lookup(metricsFileFlagName), metricsFileKey)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest := m.Path(args[0])

			maxLevel := viper.GetInt(maxLevelKey)
			if err := domain.ValidateLevel(maxLevel); err != nil {
				return err
			}

			var metrics *adapter.PrometheusMetrics

			var recorder adapter.MetricsRecorder = adapter.NopMetrics{}

			metricsFile := viper.GetString(metricsFileKey)
			if metricsFile != "" {
				metrics = adapter.NewPrometheusMetrics()
				recorder = metrics
			}

			var journal m.Path
			if !viper.GetBool(cacheDisabledKey) {
				journal = journalPath(manifest)
			}

			_, err := newWorkflow(cmd, recorder).Evaluate(cmd.Context(), domain.EvaluateArgs{
				Manifest: manifest,
				Output:   m.Path(evalOutputFlag),
				MaxLevel: maxLevel,
				Parallel: viper.GetInt(parallelKey),
				Journal:  journal,
			})
			if err != nil {
				return fmt.Errorf("evaluate %s: %w", manifest, err)
			}

			if metrics != nil {
				if err := metrics.WriteTextfile(m.Path(metricsFile)); err != nil {
					return err
				}
			}

			return nil
		},
	}

	configureEvalFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func configureEvalFlags(cmd *cobra.Command) {
	cmd.Flags().IntP(maxLevelFlagName, "l", defaultMaxLevel, "deepest oracle level to run (1-3)")
	cmd.Flags().StringVarP(&evalOutputFlag, outputFlagName, "o", "", "report path (default: evaluation_tiered.json next to the manifest)")
	cmd.Flags().IntP(parallelFlagName, "p", defaultParallel, "number of examples evaluated in parallel")
	cmd.Flags().Bool(noCacheFlagName, defaultCacheDisabled, "disable the resume journal (re-evaluate everything)")
	cmd.Flags().String(metricsFileFlagName, "", "write Prometheus metrics to this textfile")
}

// journalPath names the resume journal of a manifest after its absolute path.
func journalPath(manifest m.Path) m.Path {
	abs, err := filepath.Abs(string(manifest))
	if err != nil {
		abs = string(manifest)
	}

	sum := sha256.Sum256([]byte(abs))

	return m.Path(filepath.Join(cacheDir, hex.EncodeToString(sum[:8])+".jsonl"))
}
