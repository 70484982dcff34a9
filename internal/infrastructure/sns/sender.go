package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-auth-otp/internal/config"
)

const codeMessage = "Your verification code is %s. It expires in %d minutes."

type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender delivers dynamic codes by SMS through AWS SNS.
type Sender struct {
	client     publisher
	ttlMinutes int
}

func NewSender(ctx context.Context, cfg *config.Config) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newSender(sns.NewFromConfig(awsCfg), int(cfg.DynamicCode.TTL.Minutes())), nil
}

func newSender(client publisher, ttlMinutes int) *Sender {
	return &Sender{client: client, ttlMinutes: ttlMinutes}
}

// SendCode publishes code as a transactional SMS to phone.
func (s *Sender) SendCode(ctx context.Context, phone, code string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(fmt.Sprintf(codeMessage, code, s.ttlMinutes)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
