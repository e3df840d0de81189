package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/ui"
)

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "browse [stats|coverage|model]",
		Short:     "Explore results interactively",
		Long:      "Filter units by name, open one with enter to list its operations, toggle missing-only with m and cycle tags with t.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"stats", "coverage", "model"},
		RunE:      runBrowse,
	}
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !ui.IsTTY() {
		return errors.New("browse needs an interactive terminal")
	}
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	kind := "coverage"
	if len(args) == 1 {
		kind = args[0]
	}

	var (
		title string
		units []model.UnitRecord
		fetch ui.FetchDetails
	)
	switch kind {
	case "stats":
		title = "SDK test results"
		units, err = client.SDKStats(ctx)
	case "coverage":
		title = serviceCoverage.title
		units, err = client.CoverageSummary(ctx)
		fetch = client.ServiceCoverage
	case "model":
		title = modelCoverage.title
		units, err = client.ModelCoverage(ctx)
		fetch = client.ModelOperations
	}
	if err != nil {
		return err
	}

	return ui.RunBrowser(ui.NewBrowser(ctx, title, units, fetch))
}
