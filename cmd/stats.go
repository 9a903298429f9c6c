package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rncflow/internal/bootstrap"
	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print report statistics",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		output, _ := cmd.Flags().GetString("output")

		stats, err := app.Workflow.Statistics(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "compute statistics")
		}
		return writeStatistics(cmd.OutOrStdout(), output, stats)
	}),
}

func writeStatistics(w io.Writer, format string, stats rnc.Statistics) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errs.Wrap(enc.Encode(stats), "encode statistics json")
	case "yaml":
		// yaml.v3 ignores json tags, so go through a generic map.
		raw, err := json.Marshal(stats)
		if err != nil {
			return errs.Wrap(err, "encode statistics")
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return errs.Wrap(err, "decode statistics")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errs.Wrap(err, "encode statistics yaml")
		}
		return errs.Wrap(enc.Close(), "flush statistics yaml")
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
}
