// Package lookup resolves values that only exist once the network stack has
// been deployed: parameter-store entries and VPC attributes.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
)

// ErrVpcNotFound is returned when a VPC ID does not exist.
var ErrVpcNotFound = errors.New("vpc not found")

// Vpc is the subset of VPC attributes the service stack needs.
type Vpc struct {
	ID   string `json:"id"`
	CIDR string `json:"cidr"`
}

// VpcLookup resolves a VPC by ID.
type VpcLookup interface {
	LookupVpc(ctx context.Context, id string) (Vpc, error)
}

// EC2VpcLookup resolves VPCs through the EC2 API.
type EC2VpcLookup struct {
	client ec2iface.EC2API
}

// NewEC2VpcLookup wraps an EC2 client.
func NewEC2VpcLookup(client ec2iface.EC2API) *EC2VpcLookup {
	return &EC2VpcLookup{client: client}
}

// LookupVpc calls DescribeVpcs for a single ID.
func (l *EC2VpcLookup) LookupVpc(ctx context.Context, id string) (Vpc, error) {
	out, err := l.client.DescribeVpcsWithContext(ctx, &ec2.DescribeVpcsInput{
		VpcIds: []*string{aws.String(id)},
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == "InvalidVpcID.NotFound" {
			return Vpc{}, fmt.Errorf("%w: %s", ErrVpcNotFound, id)
		}
		return Vpc{}, fmt.Errorf("DescribeVpcs %s: %w", id, err)
	}
	if len(out.Vpcs) == 0 {
		return Vpc{}, fmt.Errorf("%w: %s", ErrVpcNotFound, id)
	}
	return Vpc{
		ID:   aws.StringValue(out.Vpcs[0].VpcId),
		CIDR: aws.StringValue(out.Vpcs[0].CidrBlock),
	}, nil
}

// StaticVpcs is an in-memory VpcLookup. It is safe for concurrent use.
type StaticVpcs struct {
	mu   sync.RWMutex
	vpcs map[string]Vpc
}

// NewStaticVpcs creates a registry preloaded with vpcs.
func NewStaticVpcs(vpcs ...Vpc) *StaticVpcs {
	s := &StaticVpcs{vpcs: make(map[string]Vpc)}
	for _, v := range vpcs {
		s.vpcs[v.ID] = v
	}
	return s
}

// Register adds or replaces a VPC.
func (s *StaticVpcs) Register(v Vpc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vpcs[v.ID] = v
}

// LookupVpc returns a registered VPC.
func (s *StaticVpcs) LookupVpc(ctx context.Context, id string) (Vpc, error) {
	if err := ctx.Err(); err != nil {
		return Vpc{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vpcs[id]
	if !ok {
		return Vpc{}, fmt.Errorf("%w: %s", ErrVpcNotFound, id)
	}
	return v, nil
}
