package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dsablic/weathertop/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:               "weathertop",
		Short:             "Show AWS SDK test results and code example coverage",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}

	root.PersistentFlags().String("config", config.DefaultPath(), "Path to the config file")
	root.PersistentFlags().String("format", "", "Output format: table, markdown or json (default table on a terminal, markdown otherwise)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log requests and timings to stderr")

	root.AddCommand(newStatsCmd())
	root.AddCommand(newNoTestsCmd())
	root.AddCommand(newCoverageCmd())
	root.AddCommand(newModelCoverageCmd())
	root.AddCommand(newBrowseCmd())
	root.AddCommand(newSubscribeCmd())
	root.AddCommand(newTasksCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
