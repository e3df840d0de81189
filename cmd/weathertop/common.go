package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dsablic/weathertop/internal/awsops"
	"github.com/dsablic/weathertop/internal/config"
	"github.com/dsablic/weathertop/internal/provider"
	"github.com/dsablic/weathertop/internal/ui"
)

var errUnknownService = errors.New("unknown service")

const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "":
		if ui.IsStdoutTTY() {
			return formatTable, nil
		}
		return formatMarkdown, nil
	case formatTable, formatMarkdown, formatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use table, markdown or json)", format)
	}
}

func newClient(ctx context.Context, cfg config.Config) (*provider.Client, error) {
	httpClient := provider.NewHTTPClient(cfg.ReqPerSec, cfg.Timeout())

	var s3c awsops.S3Client
	if strings.HasPrefix(cfg.Endpoints.Coverage, "s3://") {
		clients, err := awsops.NewClients(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		s3c = clients.S3
	}
	return provider.New(cfg.Endpoints, httpClient, s3c)
}

// setup loads the config and builds the endpoint client every read command
// needs.
func setup(cmd *cobra.Command) (config.Config, *provider.Client, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, "", err
	}
	format, err := outputFormat(cmd)
	if err != nil {
		return cfg, nil, "", err
	}
	client, err := newClient(cmd.Context(), cfg)
	if err != nil {
		return cfg, nil, "", err
	}
	return cfg, client, format, nil
}

// familyFromArn extracts the family of a task definition ARN such as
// arn:aws:ecs:region:account:task-definition/Family:3.
func familyFromArn(arn string) string {
	_, rest, ok := strings.Cut(arn, "task-definition/")
	if !ok {
		return arn
	}
	family, _, _ := strings.Cut(rest, ":")
	return family
}
