package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	appConfig "github.com/printvend/printvend-api/config"
	"github.com/printvend/printvend-api/models"
)

// JobEvent is published to the notification bus after every committed
// lifecycle transition. Delivery and retry semantics belong to the bus.
type JobEvent struct {
	JobID         string           `json:"job_id"`
	Status        models.JobStatus `json:"status"`
	CustomerEmail string           `json:"customer_email"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NotifierInterface defines the interface for publishing job events
type NotifierInterface interface {
	PublishJobEvent(event JobEvent) error
}

// SNSNotifier publishes job events to an SNS topic
type SNSNotifier struct {
	client   *sns.Client
	topicARN string
}

var notifierInstance NotifierInterface

// InitNotifier initializes the SNS notifier with AWS credentials
func InitNotifier() (NotifierInterface, error) {
	cfg := appConfig.GetConfig()

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	notifierInstance = &SNSNotifier{
		client:   sns.NewFromConfig(awsConfig),
		topicARN: cfg.SNSTopicARN,
	}
	return notifierInstance, nil
}

// GetNotifier returns the initialized notifier instance
func GetNotifier() NotifierInterface {
	return notifierInstance
}

// SetNotifier sets the notifier instance (primarily for testing)
func SetNotifier(n NotifierInterface) {
	notifierInstance = n
}

// PublishJobEvent publishes a job event to the configured SNS topic
func (n *SNSNotifier) PublishJobEvent(event JobEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode job event: %w", err)
	}

	_, err = n.client.Publish(context.TODO(), &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Status)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}
