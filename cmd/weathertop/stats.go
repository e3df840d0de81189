package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsablic/weathertop/internal/output"
	"github.com/dsablic/weathertop/internal/report"
	"github.com/dsablic/weathertop/internal/ui"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show SDK integration test results per language",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
	cmd.Flags().Bool("validate", false, "List languages whose counts do not add up")
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, client, format, err := setup(cmd)
	if err != nil {
		return err
	}
	validate, _ := cmd.Flags().GetBool("validate")

	units, err := client.SDKStats(cmd.Context())
	if err != nil {
		return err
	}
	r := report.Stats(units, cfg.Endpoints.Stats, validate, time.Now())

	switch format {
	case formatJSON:
		return output.WriteJSON(os.Stdout, r)
	case formatMarkdown:
		return output.WriteStatsMarkdown(os.Stdout, r)
	}

	fmt.Println(ui.RenderTotals("SDK test results", r.Totals))
	fmt.Println(ui.RenderBreakdown(r.Breakdown, ui.Width()))
	if len(r.Inconsistencies) > 0 {
		fmt.Println("Inconsistencies:")
		for _, inc := range r.Inconsistencies {
			fmt.Printf("  %s: %s\n", inc.UnitID, inc.Reason)
		}
	}
	return nil
}

func newNoTestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "no-tests",
		Short: "List services without tests, per language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, format, err := setup(cmd)
			if err != nil {
				return err
			}

			gaps, err := client.NoTests(cmd.Context())
			if err != nil {
				return err
			}
			r := report.NoTests(gaps, cfg.Endpoints.NoTests, time.Now())

			switch format {
			case formatJSON:
				return output.WriteJSON(os.Stdout, r)
			case formatMarkdown:
				return output.WriteNoTestsMarkdown(os.Stdout, r)
			}
			fmt.Println(ui.RenderGaps(r.Languages))
			return nil
		},
	}
}
