// internal/awsops/schedule.go
package awsops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/dsablic/weathertop/internal/model"
)

const targetID = "ecs-task-target"

// Scheduler creates EventBridge schedules for ECS tasks and starts runs.
type Scheduler struct {
	ecs    ECSClient
	events EventBridgeClient
}

func NewScheduler(ecsClient ECSClient, events EventBridgeClient) *Scheduler {
	return &Scheduler{ecs: ecsClient, events: events}
}

// Schedule creates or updates the rule and points it at the task. It
// returns the rule ARN.
func (s *Scheduler) Schedule(ctx context.Context, req model.ScheduleRequest) (string, error) {
	if err := ValidateSchedule(req.Cron); err != nil {
		return "", err
	}
	if req.TaskDefinitionArn == "" || req.ClusterName == "" {
		return "", fmt.Errorf("task definition and cluster are required")
	}
	if req.RoleArn == "" {
		return "", fmt.Errorf("an IAM role for EventBridge is required")
	}
	if len(req.Subnets) == 0 {
		return "", fmt.Errorf("at least one subnet is required")
	}

	clusterArn, err := clusterArn(ctx, s.ecs, req.ClusterName)
	if err != nil {
		return "", err
	}

	name := req.RuleName
	if name == "" {
		name = RuleName(req.TaskDefinitionArn)
	}

	rule, err := s.events.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(name),
		ScheduleExpression: aws.String(req.Cron),
		State:              ebtypes.RuleStateEnabled,
		Description:        aws.String("Runs " + req.TaskDefinitionArn),
	})
	if err != nil {
		return "", fmt.Errorf("put rule %s: %w", name, err)
	}

	out, err := s.events.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(name),
		Targets: []ebtypes.Target{{
			Id:      aws.String(targetID),
			Arn:     aws.String(clusterArn),
			RoleArn: aws.String(req.RoleArn),
			EcsParameters: &ebtypes.EcsParameters{
				TaskDefinitionArn: aws.String(req.TaskDefinitionArn),
				TaskCount:         aws.Int32(1),
				LaunchType:        ebtypes.LaunchTypeFargate,
				NetworkConfiguration: &ebtypes.NetworkConfiguration{
					AwsvpcConfiguration: &ebtypes.AwsVpcConfiguration{
						Subnets:        req.Subnets,
						SecurityGroups: req.SecurityGroups,
						AssignPublicIp: ebAssign(req.AssignPublicIP),
					},
				},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("put targets on %s: %w", name, err)
	}
	if out.FailedEntryCount > 0 {
		reason := "unknown"
		if len(out.FailedEntries) > 0 {
			reason = aws.ToString(out.FailedEntries[0].ErrorMessage)
		}
		return "", fmt.Errorf("put targets on %s: %s", name, reason)
	}

	slog.Debug("scheduled task", "rule", name, "expression", req.Cron, "cluster", clusterArn)
	return aws.ToString(rule.RuleArn), nil
}

// RunNow starts one Fargate task and returns its ARN.
func (s *Scheduler) RunNow(ctx context.Context, req model.RunRequest) (string, error) {
	if req.TaskDefinitionArn == "" || req.ClusterName == "" {
		return "", fmt.Errorf("task definition and cluster are required")
	}
	if len(req.Subnets) == 0 {
		return "", fmt.Errorf("at least one subnet is required")
	}

	out, err := s.ecs.RunTask(ctx, &ecs.RunTaskInput{
		Cluster:        aws.String(req.ClusterName),
		TaskDefinition: aws.String(req.TaskDefinitionArn),
		LaunchType:     ecstypes.LaunchTypeFargate,
		Count:          aws.Int32(1),
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        req.Subnets,
				SecurityGroups: req.SecurityGroups,
				AssignPublicIp: ecsAssign(req.AssignPublicIP),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("run task: %w", err)
	}
	if len(out.Failures) > 0 {
		return "", fmt.Errorf("run task: %s", aws.ToString(out.Failures[0].Reason))
	}
	if len(out.Tasks) == 0 {
		return "", fmt.Errorf("run task: no task started")
	}
	return aws.ToString(out.Tasks[0].TaskArn), nil
}

// RuleName derives a rule name from a task definition ARN, for example
// "ecs-weathertopjava-schedule".
func RuleName(taskDefinitionArn string) string {
	family := taskDefinitionArn
	if i := strings.LastIndex(family, "/"); i >= 0 {
		family = family[i+1:]
	}
	if i := strings.Index(family, ":"); i >= 0 {
		family = family[:i]
	}
	return "ecs-" + strings.ToLower(family) + "-schedule"
}

func ebAssign(enabled bool) ebtypes.AssignPublicIp {
	if enabled {
		return ebtypes.AssignPublicIpEnabled
	}
	return ebtypes.AssignPublicIpDisabled
}

func ecsAssign(enabled bool) ecstypes.AssignPublicIp {
	if enabled {
		return ecstypes.AssignPublicIpEnabled
	}
	return ecstypes.AssignPublicIpDisabled
}
