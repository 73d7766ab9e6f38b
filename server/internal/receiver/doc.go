// Package receiver implements the gRPC ContainerService for tidepool-server.
//
// Receiver serves Produce, Consume, View and IsEmpty against the shared
// container, reporting activity to the same Recorder as the REST API.
// Authentication is handled by the server's unary interceptor.
package receiver
