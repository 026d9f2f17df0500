// Package deploy hands synthesized templates to CloudFormation and waits for
// each stack to settle. Provider failures are returned as reported: there are
// no retries and no rewriting of status reasons.
package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/cloudformation/cloudformationiface"
	"github.com/sirupsen/logrus"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/template"
	"github.com/expense-tracker/expense-infra-go/internal/waiter"
)

const noUpdatesMessage = "No updates are to be performed"

// StackFailedError reports a stack that reached a failed or rolled-back state.
type StackFailedError struct {
	Stack  string
	Status string
	Reason string
}

func (e *StackFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("stack %s: %s", e.Stack, e.Status)
	}
	return fmt.Sprintf("stack %s: %s: %s", e.Stack, e.Status, e.Reason)
}

// Outcome is the settled state of a deployed stack.
type Outcome struct {
	Stack     string
	Status    string
	NoChanges bool
	Outputs   map[string]string
}

// Deployer creates or updates CloudFormation stacks.
type Deployer struct {
	client cloudformationiface.CloudFormationAPI
	waiter *waiter.Waiter
	logger logrus.FieldLogger
}

// New creates a Deployer. A nil waiter uses waiter.NewDefaultWaiter.
func New(client cloudformationiface.CloudFormationAPI, w *waiter.Waiter, logger logrus.FieldLogger) *Deployer {
	if w == nil {
		w = waiter.NewDefaultWaiter()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if w.Logger == nil {
		w.Logger = logger
	}
	return &Deployer{client: client, waiter: w, logger: logger}
}

// Deploy creates the stack if it does not exist, otherwise updates it, and
// waits for a terminal status.
func (d *Deployer) Deploy(ctx context.Context, stackName string, tmpl *expenseinfra.Template) (*Outcome, error) {
	body, err := template.ToJSON(tmpl)
	if err != nil {
		return nil, err
	}
	log := d.logger.WithField("stack", stackName)

	existing, err := d.describe(ctx, stackName)
	if err != nil {
		return nil, err
	}

	capabilities := aws.StringSlice([]string{cloudformation.CapabilityCapabilityIam})
	if existing == nil {
		log.Info("creating stack")
		_, err = d.client.CreateStackWithContext(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(stackName),
			TemplateBody: aws.String(string(body)),
			Capabilities: capabilities,
		})
	} else {
		log.WithField("status", aws.StringValue(existing.StackStatus)).Info("updating stack")
		_, err = d.client.UpdateStackWithContext(ctx, &cloudformation.UpdateStackInput{
			StackName:    aws.String(stackName),
			TemplateBody: aws.String(string(body)),
			Capabilities: capabilities,
		})
		if isNoUpdates(err) {
			log.Info("stack is up to date")
			return &Outcome{
				Stack:     stackName,
				Status:    aws.StringValue(existing.StackStatus),
				NoChanges: true,
				Outputs:   outputs(existing),
			}, nil
		}
	}
	if err != nil {
		return nil, err
	}

	var final *cloudformation.Stack
	err = d.waiter.Wait(ctx, func(ctx context.Context) waiter.Result {
		s, err := d.describe(ctx, stackName)
		if err != nil {
			return waiter.Error(err)
		}
		if s == nil {
			return waiter.Error(fmt.Errorf("stack %s disappeared", stackName))
		}
		status := aws.StringValue(s.StackStatus)
		switch {
		case strings.HasSuffix(status, "_IN_PROGRESS"):
			return waiter.Continue(fmt.Sprintf("stack %s: %s", stackName, status))
		case status == cloudformation.StackStatusCreateComplete || status == cloudformation.StackStatusUpdateComplete:
			final = s
			return waiter.DoneWithMessage(fmt.Sprintf("stack %s: %s", stackName, status))
		default:
			return waiter.Error(&StackFailedError{
				Stack:  stackName,
				Status: status,
				Reason: aws.StringValue(s.StackStatusReason),
			})
		}
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Stack:   stackName,
		Status:  aws.StringValue(final.StackStatus),
		Outputs: outputs(final),
	}, nil
}

// describe returns nil when the stack does not exist.
func (d *Deployer) describe(ctx context.Context, stackName string) (*cloudformation.Stack, error) {
	out, err := d.client.DescribeStacksWithContext(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == "ValidationError" &&
			strings.Contains(aerr.Message(), "does not exist") {
			return nil, nil
		}
		return nil, err
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return out.Stacks[0], nil
}

func isNoUpdates(err error) bool {
	aerr, ok := err.(awserr.Error)
	return ok && aerr.Code() == "ValidationError" && strings.Contains(aerr.Message(), noUpdatesMessage)
}

func outputs(s *cloudformation.Stack) map[string]string {
	if s == nil || len(s.Outputs) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.Outputs))
	for _, o := range s.Outputs {
		out[aws.StringValue(o.OutputKey)] = aws.StringValue(o.OutputValue)
	}
	return out
}
