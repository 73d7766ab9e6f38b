// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: the `agent:` section; the `server:` section is ignored
//   - AgentConfig: server_endpoint, produce_interval, consume_interval,
//     metrics_endpoint, probe_interval, server_auth
//   - AuthConfig: mode (apikey|none), header, key_env; Key() resolves
//     from the environment
//
// Load(path) reads the YAML file, applies defaults (1s produce, 1.5s consume,
// 10s probe, header x-api-key), then validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to reload on change.
package config
