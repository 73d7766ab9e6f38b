// Package api implements the HTTP REST API for tidepool-server.
//
// New(buf, rec) returns an http.Handler that serves:
//
//	GET|POST /api/produce  : append one item; {"container": [...], "message": ...}
//	GET|POST /api/consume  : remove one item (queue or stack mode)
//	GET      /api/view     : current values, oldest first
//	GET      /api/v1/status: size, threshold, ttl, next policy
//
// Consuming from an empty container returns 200 with the message
// "container is empty now".
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for methods other than those listed
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
