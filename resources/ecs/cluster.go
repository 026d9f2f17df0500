// Package ecs contains the AWS::ECS resource types for Fargate workloads.
package ecs

// Cluster represents AWS::ECS::Cluster.
type Cluster struct {
	ClusterName any   `json:"ClusterName,omitempty"`
	Tags        []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Cluster) ResourceType() string { return "AWS::ECS::Cluster" }
