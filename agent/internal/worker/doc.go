// Package worker drives tidepool-server over gRPC as a producer and a
// consumer sharing one connection.
//
// Worker.Run dials the server and calls Produce every ProduceInterval and
// Consume every ConsumeInterval. When the connection fails it reconnects
// with truncated exponential backoff (1s initial, 60s max, ±25% jitter).
// Permanent errors (Unauthenticated, PermissionDenied, InvalidArgument) are
// logged and the call is dropped without reconnecting.
//
// SetIntervals changes both periods while Run is active.
package worker
