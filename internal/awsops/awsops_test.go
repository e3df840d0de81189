// internal/awsops/awsops_test.go
package awsops_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/dsablic/weathertop/internal/awsops"
	"github.com/dsablic/weathertop/internal/model"
)

const (
	taskDefArn = "arn:aws:ecs:us-east-1:123456789012:task-definition/WeathertopJava:12"
	clusterArn = "arn:aws:ecs:us-east-1:123456789012:cluster/MyJavaWeathertopCluster"
)

type fakeECS struct {
	taskDefs []string
	running  []string
	clusters []ecstypes.Cluster
	runIn    *ecs.RunTaskInput
	runOut   *ecs.RunTaskOutput
}

func (f *fakeECS) ListTaskDefinitions(ctx context.Context, in *ecs.ListTaskDefinitionsInput, _ ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error) {
	var arns []string
	for _, a := range f.taskDefs {
		if strings.Contains(a, "/"+aws.ToString(in.FamilyPrefix)) {
			arns = append(arns, a)
		}
	}
	return &ecs.ListTaskDefinitionsOutput{TaskDefinitionArns: arns}, nil
}

func (f *fakeECS) DescribeTaskDefinition(ctx context.Context, in *ecs.DescribeTaskDefinitionInput, _ ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error) {
	return &ecs.DescribeTaskDefinitionOutput{TaskDefinition: &ecstypes.TaskDefinition{
		TaskDefinitionArn: in.TaskDefinition,
		Family:            aws.String("WeathertopJava"),
		TaskRoleArn:       aws.String("arn:aws:iam::123456789012:role/ecsTaskRole"),
		ExecutionRoleArn:  aws.String("arn:aws:iam::123456789012:role/ecsTaskExecutionRole"),
		NetworkMode:       ecstypes.NetworkModeAwsvpc,
		Cpu:               aws.String("256"),
		Memory:            aws.String("512"),
	}}, nil
}

func (f *fakeECS) DescribeClusters(ctx context.Context, in *ecs.DescribeClustersInput, _ ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error) {
	return &ecs.DescribeClustersOutput{Clusters: f.clusters}, nil
}

// ListTasks pages running two at a time.
func (f *fakeECS) ListTasks(ctx context.Context, in *ecs.ListTasksInput, _ ...func(*ecs.Options)) (*ecs.ListTasksOutput, error) {
	start := 0
	if in.NextToken != nil {
		start, _ = strconv.Atoi(*in.NextToken)
	}
	end := min(start+2, len(f.running))
	out := &ecs.ListTasksOutput{TaskArns: f.running[start:end]}
	if end < len(f.running) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeECS) RunTask(ctx context.Context, in *ecs.RunTaskInput, _ ...func(*ecs.Options)) (*ecs.RunTaskOutput, error) {
	f.runIn = in
	return f.runOut, nil
}

type fakeEvents struct {
	pages     []*eventbridge.ListRulesOutput
	targets   map[string][]ebtypes.Target
	putRule   *eventbridge.PutRuleInput
	putTarget *eventbridge.PutTargetsInput
	failed    int32
}

func (f *fakeEvents) ListRules(ctx context.Context, in *eventbridge.ListRulesInput, _ ...func(*eventbridge.Options)) (*eventbridge.ListRulesOutput, error) {
	if in.NextToken == nil {
		return f.pages[0], nil
	}
	return f.pages[1], nil
}

func (f *fakeEvents) ListTargetsByRule(ctx context.Context, in *eventbridge.ListTargetsByRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error) {
	return &eventbridge.ListTargetsByRuleOutput{Targets: f.targets[aws.ToString(in.Rule)]}, nil
}

func (f *fakeEvents) PutRule(ctx context.Context, in *eventbridge.PutRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error) {
	f.putRule = in
	return &eventbridge.PutRuleOutput{RuleArn: aws.String("arn:aws:events:us-east-1:123456789012:rule/" + aws.ToString(in.Name))}, nil
}

func (f *fakeEvents) PutTargets(ctx context.Context, in *eventbridge.PutTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error) {
	f.putTarget = in
	out := &eventbridge.PutTargetsOutput{FailedEntryCount: f.failed}
	if f.failed > 0 {
		out.FailedEntries = []ebtypes.PutTargetsResultEntry{{ErrorMessage: aws.String("role cannot be assumed")}}
	}
	return out, nil
}

func newFakes() (*fakeECS, *fakeEvents) {
	e := &fakeECS{
		taskDefs: []string{taskDefArn},
		clusters: []ecstypes.Cluster{{ClusterArn: aws.String(clusterArn)}},
	}
	ev := &fakeEvents{
		pages: []*eventbridge.ListRulesOutput{
			{
				Rules: []ebtypes.Rule{{
					Name:               aws.String("ecs-java-schedule"),
					ScheduleExpression: aws.String("cron(0 0 ? * 1 *)"),
					State:              ebtypes.RuleStateEnabled,
				}},
				NextToken: aws.String("page-2"),
			},
			{
				Rules: []ebtypes.Rule{{
					Name:               aws.String("ecs-java-schedule-nightly"),
					ScheduleExpression: aws.String("rate(1 day)"),
					State:              ebtypes.RuleStateDisabled,
				}},
			},
		},
		targets: map[string][]ebtypes.Target{
			"ecs-java-schedule": {{
				Id:  aws.String("ecs-task-target"),
				Arn: aws.String(clusterArn),
				EcsParameters: &ebtypes.EcsParameters{
					TaskDefinitionArn: aws.String(taskDefArn),
					LaunchType:        ebtypes.LaunchTypeFargate,
					NetworkConfiguration: &ebtypes.NetworkConfiguration{
						AwsvpcConfiguration: &ebtypes.AwsVpcConfiguration{
							Subnets:        []string{"subnet-1", "subnet-2"},
							SecurityGroups: []string{"sg-1"},
							AssignPublicIp: ebtypes.AssignPublicIpEnabled,
						},
					},
				},
			}},
		},
	}
	return e, ev
}

func TestInspect(t *testing.T) {
	e, ev := newFakes()
	got, err := awsops.NewInspector(e, ev).Inspect(context.Background(), awsops.InspectOptions{
		Family:     "WeathertopJava",
		Cluster:    "MyJavaWeathertopCluster",
		RulePrefix: "ecs-java-schedule",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.TaskDefinition.Arn != taskDefArn || got.TaskDefinition.CPU != "256" || got.TaskDefinition.NetworkMode != "awsvpc" {
		t.Errorf("unexpected task definition: %+v", got.TaskDefinition)
	}
	if got.ClusterArn != clusterArn {
		t.Errorf("expected cluster arn, got %s", got.ClusterArn)
	}
	if got.RunningTasks != 0 {
		t.Errorf("expected no running tasks, got %d", got.RunningTasks)
	}
	if len(got.Rules) != 2 {
		t.Fatalf("expected 2 rules across pages, got %d", len(got.Rules))
	}

	weekly := got.Rules[0]
	if weekly.ScheduleText != "Every Sunday at 12:00 AM UTC" || weekly.State != "ENABLED" {
		t.Errorf("unexpected rule: %+v", weekly)
	}
	if len(weekly.Targets) != 1 || weekly.Targets[0].LaunchType != "FARGATE" || weekly.Targets[0].AssignPublicIP != "ENABLED" {
		t.Errorf("unexpected targets: %+v", weekly.Targets)
	}
	if len(weekly.Targets[0].Subnets) != 2 {
		t.Errorf("expected 2 subnets, got %v", weekly.Targets[0].Subnets)
	}
	if got.Rules[1].ScheduleText != "Every day" || len(got.Rules[1].Targets) != 0 {
		t.Errorf("unexpected second rule: %+v", got.Rules[1])
	}
	for _, r := range got.Rules {
		if r.NextRun == nil || !r.NextRun.After(time.Now().Add(-time.Minute)) {
			t.Errorf("expected a future next run for %s, got %v", r.Name, r.NextRun)
		}
	}
}

func TestInspectCountsEveryPageOfTasks(t *testing.T) {
	e, ev := newFakes()
	e.running = []string{"task/1", "task/2", "task/3", "task/4", "task/5"}
	got, err := awsops.NewInspector(e, ev).Inspect(context.Background(), awsops.InspectOptions{
		Family:     "WeathertopJava",
		Cluster:    "MyJavaWeathertopCluster",
		RulePrefix: "ecs-java-schedule",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RunningTasks != 5 {
		t.Errorf("expected 5 running tasks, got %d", got.RunningTasks)
	}
}

func TestInspectNoTaskDefinition(t *testing.T) {
	e, ev := newFakes()
	_, err := awsops.NewInspector(e, ev).Inspect(context.Background(), awsops.InspectOptions{Family: "WeathertopRust", Cluster: "c"})
	if !errors.Is(err, awsops.ErrNoTaskDefinition) {
		t.Errorf("expected ErrNoTaskDefinition, got %v", err)
	}
}

func TestInspectNoCluster(t *testing.T) {
	e, ev := newFakes()
	e.clusters = nil
	_, err := awsops.NewInspector(e, ev).Inspect(context.Background(), awsops.InspectOptions{Family: "WeathertopJava", Cluster: "gone"})
	if !errors.Is(err, awsops.ErrNoCluster) {
		t.Errorf("expected ErrNoCluster, got %v", err)
	}
}

func scheduleRequest() model.ScheduleRequest {
	return model.ScheduleRequest{
		TaskDefinitionArn: taskDefArn,
		ClusterName:       "MyJavaWeathertopCluster",
		Cron:              "cron(59 23 ? * FRI *)",
		RoleArn:           "arn:aws:iam::123456789012:role/eventsRole",
		Subnets:           []string{"subnet-1"},
		AssignPublicIP:    true,
	}
}

func TestSchedule(t *testing.T) {
	e, ev := newFakes()
	arn, err := awsops.NewScheduler(e, ev).Schedule(context.Background(), scheduleRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(arn, "/ecs-weathertopjava-schedule") {
		t.Errorf("unexpected rule arn: %s", arn)
	}
	if aws.ToString(ev.putRule.ScheduleExpression) != "cron(59 23 ? * FRI *)" {
		t.Errorf("unexpected expression: %s", aws.ToString(ev.putRule.ScheduleExpression))
	}

	target := ev.putTarget.Targets[0]
	if aws.ToString(target.Arn) != clusterArn {
		t.Errorf("expected target on cluster arn, got %s", aws.ToString(target.Arn))
	}
	if aws.ToString(target.EcsParameters.TaskDefinitionArn) != taskDefArn {
		t.Errorf("unexpected task definition: %s", aws.ToString(target.EcsParameters.TaskDefinitionArn))
	}
	if target.EcsParameters.NetworkConfiguration.AwsvpcConfiguration.AssignPublicIp != ebtypes.AssignPublicIpEnabled {
		t.Error("expected public IP enabled")
	}
}

func TestScheduleRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.ScheduleRequest)
	}{
		{"bad cron", func(r *model.ScheduleRequest) { r.Cron = "cron(59 23 * * FRI *)" }},
		{"no role", func(r *model.ScheduleRequest) { r.RoleArn = "" }},
		{"no subnets", func(r *model.ScheduleRequest) { r.Subnets = nil }},
		{"no cluster", func(r *model.ScheduleRequest) { r.ClusterName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ev := newFakes()
			req := scheduleRequest()
			tt.mutate(&req)
			if _, err := awsops.NewScheduler(e, ev).Schedule(context.Background(), req); err == nil {
				t.Error("expected error")
			}
			if ev.putRule != nil {
				t.Error("expected no rule to be written")
			}
		})
	}

	for _, expr := range []string{"weekly", "cron(99 99 ? * FRI *)"} {
		e, ev := newFakes()
		req := scheduleRequest()
		req.Cron = expr
		if _, err := awsops.NewScheduler(e, ev).Schedule(context.Background(), req); !errors.Is(err, awsops.ErrInvalidSchedule) {
			t.Errorf("%s: expected ErrInvalidSchedule, got %v", expr, err)
		}
		if ev.putRule != nil {
			t.Errorf("%s: expected no rule to be written", expr)
		}
	}
}

func TestScheduleFailedTarget(t *testing.T) {
	e, ev := newFakes()
	ev.failed = 1
	_, err := awsops.NewScheduler(e, ev).Schedule(context.Background(), scheduleRequest())
	if err == nil || !strings.Contains(err.Error(), "role cannot be assumed") {
		t.Errorf("expected failed entry error, got %v", err)
	}
}

func TestRunNow(t *testing.T) {
	e, ev := newFakes()
	e.runOut = &ecs.RunTaskOutput{Tasks: []ecstypes.Task{{TaskArn: aws.String("arn:aws:ecs:us-east-1:123456789012:task/abc")}}}

	arn, err := awsops.NewScheduler(e, ev).RunNow(context.Background(), model.RunRequest{
		TaskDefinitionArn: taskDefArn,
		ClusterName:       "MyJavaWeathertopCluster",
		Subnets:           []string{"subnet-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(arn, "/abc") {
		t.Errorf("unexpected task arn: %s", arn)
	}
	if e.runIn.LaunchType != ecstypes.LaunchTypeFargate || aws.ToInt32(e.runIn.Count) != 1 {
		t.Errorf("unexpected run input: %+v", e.runIn)
	}
	if e.runIn.NetworkConfiguration.AwsvpcConfiguration.AssignPublicIp != ecstypes.AssignPublicIpDisabled {
		t.Error("expected public IP disabled")
	}
}

func TestRunNowFailure(t *testing.T) {
	e, ev := newFakes()
	e.runOut = &ecs.RunTaskOutput{Failures: []ecstypes.Failure{{Reason: aws.String("RESOURCE:MEMORY")}}}

	_, err := awsops.NewScheduler(e, ev).RunNow(context.Background(), model.RunRequest{
		TaskDefinitionArn: taskDefArn,
		ClusterName:       "c",
		Subnets:           []string{"subnet-1"},
	})
	if err == nil || !strings.Contains(err.Error(), "RESOURCE:MEMORY") {
		t.Errorf("expected failure reason, got %v", err)
	}
}

func TestRuleName(t *testing.T) {
	if got := awsops.RuleName(taskDefArn); got != "ecs-weathertopjava-schedule" {
		t.Errorf("unexpected rule name: %s", got)
	}
}

type fakeSNS struct {
	in *sns.SubscribeInput
}

func (f *fakeSNS) Subscribe(ctx context.Context, in *sns.SubscribeInput, _ ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	f.in = in
	return &sns.SubscribeOutput{SubscriptionArn: aws.String("pending confirmation")}, nil
}

func TestSubscribe(t *testing.T) {
	fake := &fakeSNS{}
	s := awsops.NewSubscriber(fake, "arn:aws:sns:us-east-1:123456789012:weathertop")

	arn, err := s.Subscribe(context.Background(), "Dev Team <dev@example.com>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arn != "pending confirmation" {
		t.Errorf("unexpected arn: %s", arn)
	}
	if aws.ToString(fake.in.Endpoint) != "dev@example.com" || aws.ToString(fake.in.Protocol) != "email" {
		t.Errorf("unexpected input: %+v", fake.in)
	}

	if _, err := s.Subscribe(context.Background(), "not-an-email"); err == nil {
		t.Error("expected invalid email error")
	}
	if _, err := awsops.NewSubscriber(fake, "").Subscribe(context.Background(), "dev@example.com"); err == nil {
		t.Error("expected error without topic")
	}
}
