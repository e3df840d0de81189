// internal/awsops/subscribe.go
package awsops

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Subscriber adds email endpoints to the test results topic.
type Subscriber struct {
	client   SNSClient
	topicArn string
}

func NewSubscriber(client SNSClient, topicArn string) *Subscriber {
	return &Subscriber{client: client, topicArn: topicArn}
}

// Subscribe requests an email subscription. The address must confirm it
// before notifications arrive; the returned ARN is "pending confirmation"
// until then.
func (s *Subscriber) Subscribe(ctx context.Context, email string) (string, error) {
	if s.topicArn == "" {
		return "", fmt.Errorf("no SNS topic configured")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", fmt.Errorf("invalid email %q: %w", email, err)
	}

	out, err := s.client.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(s.topicArn),
		Protocol: aws.String("email"),
		Endpoint: aws.String(addr.Address),
	})
	if err != nil {
		return "", fmt.Errorf("subscribe %s: %w", addr.Address, err)
	}
	return aws.ToString(out.SubscriptionArn), nil
}
