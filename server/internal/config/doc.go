// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - GRPCPort: port for the gRPC container service (default 50051)
//   - HTTPPort: port for REST, /metrics and the WebSocket stream (default 8080)
//   - Auth.Mode: "apikey" or "none"
//   - Auth.KeyEnv: environment variable holding the expected API key
//   - Auth.Header: gRPC metadata/HTTP header name (default "x-api-key")
//   - Container.Threshold: occupancy watermark for stack mode (default 5)
//   - Container.TTL: item expiry age (default 30s)
//   - Container.SweepPeriod: sweeper period (default 2s)
//   - Stream.Interval: WebSocket broadcast period (default 2s)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on change.
package config
