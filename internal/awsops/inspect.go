// internal/awsops/inspect.go
package awsops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"

	"github.com/dsablic/weathertop/internal/model"
)

var (
	// ErrNoTaskDefinition is returned when a family has no active revision.
	ErrNoTaskDefinition = errors.New("no task definition found")
	// ErrNoCluster is returned when the cluster does not exist.
	ErrNoCluster = errors.New("cluster not found")
)

// InspectOptions selects what to inspect.
type InspectOptions struct {
	Family     string
	Cluster    string
	RulePrefix string
}

// Inspector reads the state of a scheduled Fargate task.
type Inspector struct {
	ecs    ECSClient
	events EventBridgeClient
}

func NewInspector(ecsClient ECSClient, events EventBridgeClient) *Inspector {
	return &Inspector{ecs: ecsClient, events: events}
}

// Inspect reports the latest task definition in the family, the cluster,
// how many tasks of the family are running, and the EventBridge rules whose
// names start with the prefix.
func (i *Inspector) Inspect(ctx context.Context, opts InspectOptions) (*model.TaskInspection, error) {
	td, err := i.latestTaskDefinition(ctx, opts.Family)
	if err != nil {
		return nil, err
	}

	clusterArn, err := clusterArn(ctx, i.ecs, opts.Cluster)
	if err != nil {
		return nil, err
	}

	running, err := i.runningTasks(ctx, opts)
	if err != nil {
		return nil, err
	}

	rules, err := i.rules(ctx, opts.RulePrefix)
	if err != nil {
		return nil, err
	}

	return &model.TaskInspection{
		Family:         opts.Family,
		TaskDefinition: td,
		ClusterArn:     clusterArn,
		RunningTasks:   running,
		Rules:          rules,
	}, nil
}

func (i *Inspector) runningTasks(ctx context.Context, opts InspectOptions) (int, error) {
	var n int
	var next *string
	for {
		out, err := i.ecs.ListTasks(ctx, &ecs.ListTasksInput{
			Cluster:   aws.String(opts.Cluster),
			Family:    aws.String(opts.Family),
			NextToken: next,
		})
		if err != nil {
			return 0, fmt.Errorf("list tasks: %w", err)
		}
		n += len(out.TaskArns)

		if out.NextToken == nil {
			return n, nil
		}
		next = out.NextToken
	}
}

func (i *Inspector) latestTaskDefinition(ctx context.Context, family string) (model.TaskDefinition, error) {
	list, err := i.ecs.ListTaskDefinitions(ctx, &ecs.ListTaskDefinitionsInput{
		FamilyPrefix: aws.String(family),
		Sort:         ecstypes.SortOrderDesc,
		Status:       ecstypes.TaskDefinitionStatusActive,
		MaxResults:   aws.Int32(1),
	})
	if err != nil {
		return model.TaskDefinition{}, fmt.Errorf("list task definitions: %w", err)
	}
	if len(list.TaskDefinitionArns) == 0 {
		return model.TaskDefinition{}, fmt.Errorf("family %s: %w", family, ErrNoTaskDefinition)
	}

	arn := list.TaskDefinitionArns[0]
	out, err := i.ecs.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{TaskDefinition: aws.String(arn)})
	if err != nil {
		return model.TaskDefinition{}, fmt.Errorf("describe task definition: %w", err)
	}
	def := out.TaskDefinition
	if def == nil {
		return model.TaskDefinition{}, fmt.Errorf("task definition %s: %w", arn, ErrNoTaskDefinition)
	}

	return model.TaskDefinition{
		Arn:              arn,
		Family:           aws.ToString(def.Family),
		TaskRoleArn:      aws.ToString(def.TaskRoleArn),
		ExecutionRoleArn: aws.ToString(def.ExecutionRoleArn),
		NetworkMode:      string(def.NetworkMode),
		CPU:              aws.ToString(def.Cpu),
		Memory:           aws.ToString(def.Memory),
	}, nil
}

func (i *Inspector) rules(ctx context.Context, prefix string) ([]model.ScheduleRule, error) {
	var rules []model.ScheduleRule
	var next *string
	now := time.Now()
	for {
		out, err := i.events.ListRules(ctx, &eventbridge.ListRulesInput{
			NamePrefix: aws.String(prefix),
			NextToken:  next,
		})
		if err != nil {
			return nil, fmt.Errorf("list rules: %w", err)
		}

		for _, r := range out.Rules {
			expr := aws.ToString(r.ScheduleExpression)
			text, err := DescribeSchedule(expr)
			if err != nil {
				slog.Debug("unreadable schedule", "rule", aws.ToString(r.Name), "expression", expr)
				text = expr
			}

			targets, err := i.targets(ctx, aws.ToString(r.Name))
			if err != nil {
				return nil, err
			}

			rule := model.ScheduleRule{
				Name:         aws.ToString(r.Name),
				Expression:   expr,
				Description:  aws.ToString(r.Description),
				State:        string(r.State),
				ScheduleText: text,
				Targets:      targets,
			}
			if at, err := NextRun(expr, now); err == nil {
				rule.NextRun = &at
			}
			rules = append(rules, rule)
		}

		if out.NextToken == nil {
			return rules, nil
		}
		next = out.NextToken
	}
}

func (i *Inspector) targets(ctx context.Context, rule string) ([]model.RuleTarget, error) {
	out, err := i.events.ListTargetsByRule(ctx, &eventbridge.ListTargetsByRuleInput{Rule: aws.String(rule)})
	if err != nil {
		return nil, fmt.Errorf("list targets for %s: %w", rule, err)
	}

	targets := make([]model.RuleTarget, 0, len(out.Targets))
	for _, t := range out.Targets {
		target := model.RuleTarget{ID: aws.ToString(t.Id), Arn: aws.ToString(t.Arn)}
		if p := t.EcsParameters; p != nil {
			target.TaskDefinitionArn = aws.ToString(p.TaskDefinitionArn)
			target.LaunchType = string(p.LaunchType)
			if nc := p.NetworkConfiguration; nc != nil && nc.AwsvpcConfiguration != nil {
				target.Subnets = nc.AwsvpcConfiguration.Subnets
				target.SecurityGroups = nc.AwsvpcConfiguration.SecurityGroups
				target.AssignPublicIP = string(nc.AwsvpcConfiguration.AssignPublicIp)
			}
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func clusterArn(ctx context.Context, client ECSClient, cluster string) (string, error) {
	out, err := client.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: []string{cluster}})
	if err != nil {
		return "", fmt.Errorf("describe cluster: %w", err)
	}
	if len(out.Clusters) == 0 {
		return "", fmt.Errorf("cluster %s: %w", cluster, ErrNoCluster)
	}
	return aws.ToString(out.Clusters[0].ClusterArn), nil
}
