// Package probe scrapes tidepool-server's Prometheus /metrics endpoint and
// condenses the container families into a Reading. The agent logs a Reading
// every probe_interval and warns while the container is in stack mode.
package probe
