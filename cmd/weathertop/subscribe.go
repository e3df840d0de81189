package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dsablic/weathertop/internal/awsops"
	"github.com/dsablic/weathertop/internal/ui"
)

func newSubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe an email address to test run reports",
		Args:  cobra.NoArgs,
		RunE:  runSubscribe,
	}
	cmd.Flags().String("email", "", "Address to subscribe (prompted for on a terminal)")
	cmd.Flags().Bool("direct", false, "Subscribe through SNS instead of the subscribe endpoint")
	return cmd
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("email")
	direct, _ := cmd.Flags().GetBool("direct")

	if email == "" {
		if !ui.IsTTY() {
			return errors.New("--email is required when not running in a terminal")
		}
		if err := ui.SubscribeForm(&email).Run(); err != nil {
			return err
		}
	}
	if err := ui.ValidateEmail(email); err != nil {
		return err
	}

	var msg string
	if direct {
		if cfg.AWS.TopicArn == "" {
			return errors.New("set aws.topic_arn in the config or WEATHERTOP_TOPIC_ARN to subscribe directly")
		}
		clients, err := awsops.NewClients(ctx, cfg.AWS.Region)
		if err != nil {
			return err
		}
		arn, err := awsops.NewSubscriber(clients.SNS, cfg.AWS.TopicArn).Subscribe(ctx, email)
		if err != nil {
			return err
		}
		msg = fmt.Sprintf("Subscription %s requested. Check your email to confirm.", arn)
	} else {
		client, err := newClient(ctx, cfg)
		if err != nil {
			return err
		}
		msg, err = client.Subscribe(ctx, email)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(os.Stderr, msg)
	return nil
}
