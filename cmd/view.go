package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tcoracle.dev/pkg/tcoracle/internal/controller"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

var viewFormatFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <evaluation_tiered.json>",
		Short: "View a previously generated evaluation report",
		Long: `Render a saved evaluation report. On a terminal the report opens in a
scrollable viewer; otherwise it is printed as plain text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := reportStore.LoadReport(cmd.Context(), m.Path(args[0]))
			if err != nil {
				return fmt.Errorf("load report: %w", err)
			}

			switch viewFormatFlag {
			case formatYAML:
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)

				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("encode report: %w", err)
				}

				return enc.Close()
			case formatText:
				ui := controller.NewUI(cmd, controller.IsTTY(cmd.OutOrStdout()))
				if err := ui.Start(cmd.Context(), controller.WithViewMode()); err != nil {
					return err
				}
				defer ui.Close(cmd.Context())

				return ui.DisplayReport(cmd.Context(), report)
			default:
				return fmt.Errorf("unknown format %q (want %s or %s)", viewFormatFlag, formatText, formatYAML)
			}
		},
	}

	cmd.Flags().StringVar(&viewFormatFlag, formatFlagName, formatText, "output format: text or yaml")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
