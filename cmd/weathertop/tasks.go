package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsablic/weathertop/internal/awsops"
	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/output"
	"github.com/dsablic/weathertop/internal/provider"
	"github.com/dsablic/weathertop/internal/ui"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect, schedule and run the ECS test tasks",
	}

	infoCmd := &cobra.Command{
		Use:       "info <import|lookup|summary>",
		Short:     "Show what the management endpoint reports for a task",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: provider.Tasks,
		RunE:      runTaskInfo,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect the Fargate task definition, cluster and schedule rules",
		Args:  cobra.NoArgs,
		RunE:  runTaskInspect,
	}
	inspectCmd.Flags().String("family", "", "Task definition family (default: from the configured task definition)")
	inspectCmd.Flags().String("cluster", "", "ECS cluster name (default: from config)")
	inspectCmd.Flags().String("rule-prefix", "", "EventBridge rule name prefix (default: from config)")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run a task on a schedule",
		Args:  cobra.NoArgs,
		RunE:  runTaskSchedule,
	}
	scheduleCmd.Flags().String("task-def", "", "Task definition ARN")
	scheduleCmd.Flags().String("cluster", "", "ECS cluster name")
	scheduleCmd.Flags().String("cron", "", "Schedule expression, cron(...) or rate(...)")
	scheduleCmd.Flags().String("rule-name", "", "EventBridge rule name, with --direct (default: derived from the task family)")
	scheduleCmd.Flags().Bool("direct", false, "Create the rule through EventBridge instead of the schedule endpoint")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start a task now",
		Args:  cobra.NoArgs,
		RunE:  runTaskRun,
	}
	runCmd.Flags().String("task-def", "", "Task definition ARN (default: from config)")
	runCmd.Flags().String("cluster", "", "ECS cluster name (default: from config)")
	runCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(infoCmd, inspectCmd, scheduleCmd, runCmd)
	return cmd
}

func runTaskInfo(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	info, err := client.TaskInfo(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return output.WriteJSON(os.Stdout, info)
}

func runTaskInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts := awsops.InspectOptions{
		Family:     stringFlag(cmd, "family", familyFromArn(cfg.AWS.TaskDefinitionArn)),
		Cluster:    stringFlag(cmd, "cluster", cfg.AWS.ClusterName),
		RulePrefix: stringFlag(cmd, "rule-prefix", cfg.AWS.RulePrefix),
	}

	clients, err := awsops.NewClients(ctx, cfg.AWS.Region)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Inspecting %s on %s...\n", opts.Family, opts.Cluster)
	in, err := awsops.NewInspector(clients.ECS, clients.EventBridge).Inspect(ctx, opts)
	if err != nil {
		return err
	}

	if format == formatJSON {
		return output.WriteJSON(os.Stdout, in)
	}
	return output.WriteInspectionMarkdown(os.Stdout, *in)
}

func runTaskSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	direct, _ := cmd.Flags().GetBool("direct")

	req := model.ScheduleRequest{
		RuleName:          stringFlag(cmd, "rule-name", ""),
		TaskDefinitionArn: stringFlag(cmd, "task-def", cfg.AWS.TaskDefinitionArn),
		ClusterName:       stringFlag(cmd, "cluster", cfg.AWS.ClusterName),
		Cron:              stringFlag(cmd, "cron", cfg.AWS.Cron),
		RoleArn:           cfg.AWS.RuleRoleArn,
		Subnets:           cfg.AWS.Subnets,
		SecurityGroups:    cfg.AWS.SecurityGroups,
		AssignPublicIP:    cfg.AWS.AssignPublicIP,
	}

	given := cmd.Flags().Changed("task-def") && cmd.Flags().Changed("cluster") && cmd.Flags().Changed("cron")
	if !given && ui.IsTTY() {
		if err := ui.ScheduleForm(&req).Run(); err != nil {
			return err
		}
	}
	if err := awsops.ValidateSchedule(req.Cron); err != nil {
		return err
	}
	if desc, err := awsops.DescribeSchedule(req.Cron); err == nil {
		fmt.Fprintf(os.Stderr, "Scheduling %s: %s\n", familyFromArn(req.TaskDefinitionArn), desc)
	}
	if next, err := awsops.NextRun(req.Cron, time.Now()); err == nil {
		fmt.Fprintf(os.Stderr, "Next run: %s\n", next.Format("2006-01-02 15:04 MST"))
	}

	if direct {
		clients, err := awsops.NewClients(ctx, cfg.AWS.Region)
		if err != nil {
			return err
		}
		arn, err := awsops.NewScheduler(clients.ECS, clients.EventBridge).Schedule(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Created rule %s\n", arn)
		return nil
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	msg, err := client.ScheduleTask(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, msg)
	return nil
}

func runTaskRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	req := model.RunRequest{
		TaskDefinitionArn: stringFlag(cmd, "task-def", cfg.AWS.TaskDefinitionArn),
		ClusterName:       stringFlag(cmd, "cluster", cfg.AWS.ClusterName),
		Subnets:           cfg.AWS.Subnets,
		SecurityGroups:    cfg.AWS.SecurityGroups,
		AssignPublicIP:    cfg.AWS.AssignPublicIP,
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		if !ui.IsTTY() {
			return errors.New("pass --yes to start a task when not running in a terminal")
		}
		ok, err := ui.Confirm(fmt.Sprintf("Start %s on %s now?", familyFromArn(req.TaskDefinitionArn), req.ClusterName))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	clients, err := awsops.NewClients(ctx, cfg.AWS.Region)
	if err != nil {
		return err
	}
	arn, err := awsops.NewScheduler(clients.ECS, clients.EventBridge).RunNow(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Started task %s\n", arn)
	return nil
}

// stringFlag returns the flag value, or fallback when the flag is empty.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}
