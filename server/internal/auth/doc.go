// Package auth provides API key authentication for tidepool-server.
//
// APIKeyInterceptor(mode, header, key) returns a gRPC UnaryServerInterceptor
// that validates the API key from the named gRPC metadata header.
// APIKeyMiddleware(mode, header, key, next) applies the same check to the
// REST API using the HTTP header of the same name.
//
// When mode != "apikey" or key == "", all calls pass through (useful for local
// development with auth disabled). A missing or incorrect key is rejected with
// codes.Unauthenticated (gRPC) or 401 (HTTP).
package auth
