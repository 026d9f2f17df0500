package params

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
)

// SSMStore is a Store backed by AWS Systems Manager Parameter Store.
type SSMStore struct {
	client ssmiface.SSMAPI
}

// NewSSMStore wraps an SSM client.
func NewSSMStore(client ssmiface.SSMAPI) *SSMStore {
	return &SSMStore{client: client}
}

// Get reads a String parameter. ParameterNotFound maps to NotPublishedError.
func (s *SSMStore) Get(ctx context.Context, name Name) (string, error) {
	out, err := s.client.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name: aws.String(string(name)),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == ssm.ErrCodeParameterNotFound {
			return "", &NotPublishedError{Name: name}
		}
		return "", fmt.Errorf("GetParameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", &NotPublishedError{Name: name}
	}
	return aws.StringValue(out.Parameter.Value), nil
}

// Put writes a String parameter, overwriting any previous value.
func (s *SSMStore) Put(ctx context.Context, name Name, value string) error {
	_, err := s.client.PutParameterWithContext(ctx, &ssm.PutParameterInput{
		Name:      aws.String(string(name)),
		Value:     aws.String(value),
		Type:      aws.String(ssm.ParameterTypeString),
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("PutParameter %s: %w", name, err)
	}
	return nil
}
