package deploy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/cloudformation/cloudformationiface"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/waiter"
)

type mockCloudFormation struct {
	cloudformationiface.CloudFormationAPI

	exists    bool
	statuses  []string
	reason    string
	updateErr error

	creates []*cloudformation.CreateStackInput
	updates []*cloudformation.UpdateStackInput
	polls   int
}

func (m *mockCloudFormation) DescribeStacksWithContext(_ aws.Context, in *cloudformation.DescribeStacksInput, _ ...request.Option) (*cloudformation.DescribeStacksOutput, error) {
	if !m.exists {
		return nil, awserr.New("ValidationError", "Stack with id "+aws.StringValue(in.StackName)+" does not exist", nil)
	}
	status := m.statuses[len(m.statuses)-1]
	if m.polls < len(m.statuses) {
		status = m.statuses[m.polls]
	}
	m.polls++
	return &cloudformation.DescribeStacksOutput{Stacks: []*cloudformation.Stack{{
		StackName:         in.StackName,
		StackStatus:       aws.String(status),
		StackStatusReason: aws.String(m.reason),
		Outputs: []*cloudformation.Output{
			{OutputKey: aws.String("VpcIdExport"), OutputValue: aws.String("vpc-0abc")},
		},
	}}}, nil
}

func (m *mockCloudFormation) CreateStackWithContext(_ aws.Context, in *cloudformation.CreateStackInput, _ ...request.Option) (*cloudformation.CreateStackOutput, error) {
	m.creates = append(m.creates, in)
	m.exists = true
	return &cloudformation.CreateStackOutput{StackId: aws.String("arn:stack")}, nil
}

func (m *mockCloudFormation) UpdateStackWithContext(_ aws.Context, in *cloudformation.UpdateStackInput, _ ...request.Option) (*cloudformation.UpdateStackOutput, error) {
	m.updates = append(m.updates, in)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &cloudformation.UpdateStackOutput{StackId: aws.String("arn:stack")}, nil
}

func fastWaiter() *waiter.Waiter {
	return &waiter.Waiter{SleepDuration: time.Millisecond, StatusInterval: time.Millisecond, Timeout: 5 * time.Second}
}

var testTemplate = &expenseinfra.Template{
	AWSTemplateFormatVersion: "2010-09-09",
	Resources: map[string]expenseinfra.ResourceDef{
		"ExpenseTrackerVpc": {Type: "AWS::EC2::VPC", Properties: map[string]any{"CidrBlock": "10.0.0.0/16"}},
	},
}

func TestDeploy_Create(t *testing.T) {
	client := &mockCloudFormation{statuses: []string{"CREATE_IN_PROGRESS", "CREATE_IN_PROGRESS", "CREATE_COMPLETE"}}
	logger, _ := logtest.NewNullLogger()

	outcome, err := New(client, fastWaiter(), logger).Deploy(context.Background(), "ExpenseTrackerNetworkStack", testTemplate)
	require.NoError(t, err)

	require.Len(t, client.creates, 1)
	assert.Empty(t, client.updates)
	assert.Equal(t, []*string{aws.String("CAPABILITY_IAM")}, client.creates[0].Capabilities)
	assert.Contains(t, aws.StringValue(client.creates[0].TemplateBody), "AWS::EC2::VPC")

	assert.Equal(t, "CREATE_COMPLETE", outcome.Status)
	assert.False(t, outcome.NoChanges)
	assert.Equal(t, "vpc-0abc", outcome.Outputs["VpcIdExport"])
}

func TestDeploy_UpdateNoChanges(t *testing.T) {
	client := &mockCloudFormation{
		exists:    true,
		statuses:  []string{"CREATE_COMPLETE"},
		updateErr: awserr.New("ValidationError", "No updates are to be performed.", nil),
	}

	outcome, err := New(client, fastWaiter(), nil).Deploy(context.Background(), "ExpenseServiceStack", testTemplate)
	require.NoError(t, err)

	assert.True(t, outcome.NoChanges)
	assert.Equal(t, "CREATE_COMPLETE", outcome.Status)
	assert.Len(t, client.updates, 1)
}

func TestDeploy_FailureReasonVerbatim(t *testing.T) {
	reason := "The following resource(s) failed to create: [DatabaseNLB]."
	client := &mockCloudFormation{
		statuses: []string{"CREATE_IN_PROGRESS", "ROLLBACK_IN_PROGRESS", "ROLLBACK_COMPLETE"},
		reason:   reason,
	}

	_, err := New(client, fastWaiter(), nil).Deploy(context.Background(), "ExpenseServiceStack", testTemplate)
	require.Error(t, err)

	var failed *StackFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "ROLLBACK_COMPLETE", failed.Status)
	assert.Equal(t, reason, failed.Reason)
	assert.Len(t, client.creates, 1)
}

func TestDeploy_UpdateErrorSurfaces(t *testing.T) {
	client := &mockCloudFormation{
		exists:    true,
		statuses:  []string{"UPDATE_ROLLBACK_COMPLETE"},
		updateErr: awserr.New("AccessDenied", "not authorized", nil),
	}

	_, err := New(client, fastWaiter(), nil).Deploy(context.Background(), "ExpenseServiceStack", testTemplate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
}
