// Package ec2 contains the AWS::EC2 resource types used by the network and
// service stacks.
//
// Reference-typed properties are declared as any so they accept literals,
// intrinsics, construct refs, or AttrRef values:
//
//	ec2.Subnet{
//		VpcId:            vpc.Ref(),
//		CidrBlock:        "10.0.0.0/24",
//		AvailabilityZone: intrinsics.AZ(0),
//	}
package ec2
