// Package service holds the workloads a node can run. Each one owns its
// replica state and answers client requests from the node's handler loop;
// the replicated workloads plug a merge policy into a gossip.Manager.
package service
