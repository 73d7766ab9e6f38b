// Package ws implements the WebSocket stream for tidepool-server.
//
// Hub.ServeHTTP upgrades a connection and sends the current container state
// immediately. Hub.Run broadcasts the state to every client on a fixed
// interval and closes all connections when its context is cancelled.
//
// Message format:
//
//	{
//	  "event": "container",
//	  "data":  { /* same schema as GET /api/v1/status */ }
//	}
//
// Mounted at /ws/stream by the server.
package ws
