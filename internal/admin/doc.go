// Package admin serves a read-only gRPC inspection endpoint next to the
// stdio protocol. The Snapshot method returns the node's identity,
// neighbors, gossip counters and workload state as a protobuf Struct.
//
// The service is declared by hand over well-known protobuf types, so no
// generated code is needed:
//
//	service meshnode.admin.Admin {
//	  rpc Snapshot(google.protobuf.Empty) returns (google.protobuf.Struct);
//	}
package admin
