// Package ring places cluster members on a hash ring. Nodes use it to pick a
// small, stable set of gossip neighbors: the members that follow a node
// clockwise on the ring.
package ring
