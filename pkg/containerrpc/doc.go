// Package containerrpc defines the tidepool.v1.ContainerService gRPC service
// shared by tidepool-server and tidepool-agent.
//
// The service has four unary methods: Produce, Consume, View and IsEmpty.
// Every request is google.protobuf.Empty and every reply is a
// google.protobuf.Struct with the same field names as the REST API:
//
//	container  list of numbers, oldest first
//	message    human-readable outcome (Produce/Consume)
//	policy     "queue" | "stack" when Consume removed an item
//	consumed   the removed value
//	empty      bool (IsEmpty)
//
// Using the well-known types keeps the wire format protobuf without a
// generated package.
package containerrpc
