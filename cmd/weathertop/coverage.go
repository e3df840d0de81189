package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsablic/weathertop/internal/config"
	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/output"
	"github.com/dsablic/weathertop/internal/provider"
	"github.com/dsablic/weathertop/internal/report"
	"github.com/dsablic/weathertop/internal/stats"
	"github.com/dsablic/weathertop/internal/ui"
)

// coverageSource is one of the two coverage documents: per-service code
// examples, or the Kotlin model reference.
type coverageSource struct {
	title   string
	units   func(*provider.Client, context.Context) ([]model.UnitRecord, error)
	details func(*provider.Client, context.Context, string) ([]model.DetailRecord, error)
	label   func(config.Config) string
}

var (
	serviceCoverage = coverageSource{
		title:   "Code example coverage",
		units:   (*provider.Client).CoverageSummary,
		details: (*provider.Client).ServiceCoverage,
		label:   func(cfg config.Config) string { return cfg.Endpoints.Coverage + "/summary.json" },
	}
	modelCoverage = coverageSource{
		title:   "Kotlin model coverage",
		units:   (*provider.Client).ModelCoverage,
		details: (*provider.Client).ModelOperations,
		label:   func(cfg config.Config) string { return cfg.Endpoints.Coverage + "/kotlinref.json" },
	}
)

func newCoverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Show code example coverage per AWS service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoverage(cmd, serviceCoverage)
		},
	}
	addCoverageFlags(cmd)
	return cmd
}

func newModelCoverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model-coverage",
		Short: "Show Kotlin model coverage per service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoverage(cmd, modelCoverage)
		},
	}
	addCoverageFlags(cmd)
	return cmd
}

func addCoverageFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("query", "q", "", "Only list services whose name contains this text")
	cmd.Flags().String("service", "", "Show the operations of one service")
	cmd.Flags().Bool("missing-only", false, "With --service, only list operations without examples")
	cmd.Flags().String("tag", "", "With --service, only list operations tagged with this language")
	cmd.Flags().String("sort", "", "With --service, sort operations by found or tags")
}

func runCoverage(cmd *cobra.Command, src coverageSource) error {
	cfg, client, format, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	query, _ := cmd.Flags().GetString("query")
	service, _ := cmd.Flags().GetString("service")
	filter := model.DetailFilter{}
	filter.MissingOnly, _ = cmd.Flags().GetBool("missing-only")
	filter.Tag, _ = cmd.Flags().GetString("tag")
	filter.SortBy, _ = cmd.Flags().GetString("sort")

	switch filter.SortBy {
	case stats.SortNone, stats.SortFound, stats.SortTags:
	default:
		return fmt.Errorf("unsupported sort: %s (use found or tags)", filter.SortBy)
	}

	units, err := src.units(client, ctx)
	if err != nil {
		return err
	}
	r := report.Coverage(units, src.label(cfg), query, time.Now())

	if service != "" {
		unit, ok := stats.Select(units, service)
		if !ok {
			return fmt.Errorf("%s: %w", service, errUnknownService)
		}
		details, err := src.details(client, ctx, unit.ID)
		if err != nil {
			return err
		}
		d := report.Detail(unit, details, filter)
		r.Selected = &d
	}

	switch format {
	case formatJSON:
		return output.WriteJSON(os.Stdout, r)
	case formatMarkdown:
		return output.WriteCoverageMarkdown(os.Stdout, r)
	}

	fmt.Println(ui.RenderTotals(src.title, r.Totals))
	fmt.Println(ui.RenderCoverage(r.Coverage))
	if r.Selected != nil {
		fmt.Println(ui.RenderDetails(*r.Selected))
		return nil
	}
	fmt.Println(ui.RenderBreakdown(r.Services, ui.Width()))
	return nil
}
