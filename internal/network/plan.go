// Package network declares the expense tracker VPC: public and private
// subnets across availability zones, one internet gateway, and one NAT
// gateway per zone.
package network

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"sort"

	"github.com/projectdiscovery/mapcidr"
)

// Config describes the VPC layout.
type Config struct {
	Name        string `yaml:"name"`
	CIDR        string `yaml:"cidr"`
	Zones       int    `yaml:"zones"`
	PublicMask  int    `yaml:"publicMask"`
	PrivateMask int    `yaml:"privateMask"`
}

// DefaultConfig is a /16 VPC with a /24 public and private subnet in each of
// two zones.
func DefaultConfig() Config {
	return Config{
		Name:        "ExpenseTrackerVpc",
		CIDR:        "10.0.0.0/16",
		Zones:       2,
		PublicMask:  24,
		PrivateMask: 24,
	}
}

// MaxZones matches the largest region's availability zone count.
const MaxZones = 6

// maxSplitBits bounds how finely the VPC block is partitioned.
const maxSplitBits = 12

// Topology is the subnet allocation for a Config. Index i of each slice
// belongs to zone i.
type Topology struct {
	VpcCIDR        string
	PublicSubnets  []string
	PrivateSubnets []string
}

// Plan partitions the VPC CIDR into Zones public subnets followed by Zones
// private subnets, in ascending address order.
func Plan(cfg Config) (*Topology, error) {
	if cfg.Zones < 1 {
		return nil, fmt.Errorf("zones must be at least 1, got %d", cfg.Zones)
	}
	if cfg.Zones > MaxZones {
		return nil, fmt.Errorf("zones must be at most %d, got %d", MaxZones, cfg.Zones)
	}

	_, vpcNet, err := net.ParseCIDR(cfg.CIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid vpc cidr %q: %w", cfg.CIDR, err)
	}
	if vpcNet.IP.To4() == nil {
		return nil, errors.New("vpc cidr must be IPv4")
	}
	prefix, _ := vpcNet.Mask.Size()

	publics, err := allocate(vpcNet, prefix, cfg.PublicMask, cfg.Zones, nil)
	if err != nil {
		return nil, fmt.Errorf("public subnets: %w", err)
	}
	privates, err := allocate(vpcNet, prefix, cfg.PrivateMask, cfg.Zones, publics)
	if err != nil {
		return nil, fmt.Errorf("private subnets: %w", err)
	}

	return &Topology{
		VpcCIDR:        vpcNet.String(),
		PublicSubnets:  toStrings(publics),
		PrivateSubnets: toStrings(privates),
	}, nil
}

// allocate returns the first count blocks of size mask inside vpc that do not
// overlap taken.
func allocate(vpc *net.IPNet, prefix, mask, count int, taken []*net.IPNet) ([]*net.IPNet, error) {
	if mask <= prefix || mask > 28 {
		return nil, fmt.Errorf("mask /%d must be narrower than /%d and at most /28", mask, prefix)
	}
	if mask-prefix > maxSplitBits {
		return nil, fmt.Errorf("mask /%d is too fine for a /%d vpc", mask, prefix)
	}

	blocks, err := mapcidr.SplitN(vpc.String(), 1<<(mask-prefix))
	if err != nil {
		return nil, err
	}
	sort.Slice(blocks, func(i, j int) bool {
		return bytes.Compare(blocks[i].IP.To4(), blocks[j].IP.To4()) < 0
	})

	var out []*net.IPNet
	for _, b := range blocks {
		block := &net.IPNet{IP: b.IP.To4(), Mask: net.CIDRMask(mask, 32)}
		if overlapsAny(block, taken) {
			continue
		}
		out = append(out, block)
		if len(out) == count {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%s cannot hold %d more /%d subnets", vpc, count, mask)
}

func overlapsAny(n *net.IPNet, others []*net.IPNet) bool {
	for _, o := range others {
		if n.Contains(o.IP) || o.Contains(n.IP) {
			return true
		}
	}
	return false
}

func toStrings(nets []*net.IPNet) []string {
	out := make([]string, len(nets))
	for i, n := range nets {
		out[i] = n.String()
	}
	return out
}
