package lookup

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/expense-tracker/expense-infra-go/internal/params"
)

// ResolvedNetwork is what the service stack reads from the network stack.
type ResolvedNetwork struct {
	VpcID          string
	CIDR           string
	PrivateSubnets []string
}

// Resolver performs synthesis-time lookups, consulting the cache first.
type Resolver struct {
	Params params.Store
	Vpcs   VpcLookup
	Cache  *Cache
	Logger logrus.FieldLogger
}

func (r *Resolver) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

// Parameter resolves a parameter-store value.
func (r *Resolver) Parameter(ctx context.Context, name params.Name) (string, error) {
	key := "ssm:" + string(name)
	if r.Cache != nil {
		if v, ok := r.Cache.Get(key); ok {
			r.logger().WithField("parameter", name).Debug("parameter resolved from context")
			return v, nil
		}
	}

	v, err := r.Params.Get(ctx, name)
	if err != nil {
		return "", err
	}
	r.logger().WithFields(logrus.Fields{"parameter": name, "value": v}).Debug("parameter resolved")
	if r.Cache != nil {
		r.Cache.Set(key, v)
	}
	return v, nil
}

// Vpc resolves a VPC's attributes.
func (r *Resolver) Vpc(ctx context.Context, id string) (Vpc, error) {
	key := "vpc:" + id + ":cidr"
	if r.Cache != nil {
		if cidr, ok := r.Cache.Get(key); ok {
			return Vpc{ID: id, CIDR: cidr}, nil
		}
	}

	v, err := r.Vpcs.LookupVpc(ctx, id)
	if err != nil {
		return Vpc{}, err
	}
	r.logger().WithFields(logrus.Fields{"vpc": id, "cidr": v.CIDR}).Debug("vpc resolved")
	if r.Cache != nil {
		r.Cache.Set(key, v.CIDR)
	}
	return v, nil
}

// Network reads VpcId, the VPC's CIDR, then PrivateSubnet-0..n-1. The first
// missing value aborts the lookup.
func (r *Resolver) Network(ctx context.Context, privateSubnets int) (*ResolvedNetwork, error) {
	vpcID, err := r.Parameter(ctx, params.VpcID)
	if err != nil {
		return nil, fmt.Errorf("resolving network: %w", err)
	}

	vpc, err := r.Vpc(ctx, vpcID)
	if err != nil {
		return nil, fmt.Errorf("resolving network: %w", err)
	}

	resolved := &ResolvedNetwork{VpcID: vpcID, CIDR: vpc.CIDR}
	for i := 0; i < privateSubnets; i++ {
		subnet, err := r.Parameter(ctx, params.PrivateSubnet(i))
		if err != nil {
			return nil, fmt.Errorf("resolving network: %w", err)
		}
		resolved.PrivateSubnets = append(resolved.PrivateSubnets, subnet)
	}

	r.logger().WithFields(logrus.Fields{
		"vpc":     resolved.VpcID,
		"cidr":    resolved.CIDR,
		"subnets": len(resolved.PrivateSubnets),
	}).Info("network resolved")
	return resolved, nil
}
