// Package awsops talks to ECS, EventBridge, SNS and S3 directly through the
// AWS SDK, for the task inspection, scheduling and subscription actions.
package awsops

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// ECSClient is the subset of the ECS API used for task inspection and runs.
type ECSClient interface {
	ListTaskDefinitions(ctx context.Context, params *ecs.ListTaskDefinitionsInput, optFns ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error)
	DescribeTaskDefinition(ctx context.Context, params *ecs.DescribeTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error)
	DescribeClusters(ctx context.Context, params *ecs.DescribeClustersInput, optFns ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error)
	ListTasks(ctx context.Context, params *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error)
	RunTask(ctx context.Context, params *ecs.RunTaskInput, optFns ...func(*ecs.Options)) (*ecs.RunTaskOutput, error)
}

// EventBridgeClient is the subset of the EventBridge API used for schedules.
type EventBridgeClient interface {
	ListRules(ctx context.Context, params *eventbridge.ListRulesInput, optFns ...func(*eventbridge.Options)) (*eventbridge.ListRulesOutput, error)
	ListTargetsByRule(ctx context.Context, params *eventbridge.ListTargetsByRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error)
	PutRule(ctx context.Context, params *eventbridge.PutRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error)
	PutTargets(ctx context.Context, params *eventbridge.PutTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error)
}

// SNSClient subscribes endpoints to the results topic.
type SNSClient interface {
	Subscribe(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
}

// S3Client reads coverage documents.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	_ ECSClient         = (*ecs.Client)(nil)
	_ EventBridgeClient = (*eventbridge.Client)(nil)
	_ SNSClient         = (*sns.Client)(nil)
	_ S3Client          = (*s3.Client)(nil)
)

// Clients bundles the SDK clients built from one AWS config.
type Clients struct {
	ECS         *ecs.Client
	EventBridge *eventbridge.Client
	SNS         *sns.Client
	S3          *s3.Client
}

// NewClients loads the default credential chain for region.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return FromConfig(cfg), nil
}

// FromConfig builds every client from cfg.
func FromConfig(cfg aws.Config) *Clients {
	return &Clients{
		ECS:         ecs.NewFromConfig(cfg),
		EventBridge: eventbridge.NewFromConfig(cfg),
		SNS:         sns.NewFromConfig(cfg),
		S3:          s3.NewFromConfig(cfg),
	}
}
