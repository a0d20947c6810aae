// Package instance names the running process in logs and lock values.
package instance

import (
	"os"

	"github.com/plunoo/biskakenauto-sub000/pkg/env"
)

// ID returns the platform-assigned instance name, falling back to the host
// name and finally "local".
func ID() string {
	fallback := "local"
	if host, err := os.Hostname(); err == nil && host != "" {
		fallback = host
	}
	return env.First(fallback, "BISKAKEN_INSTANCE_ID", "WORKER_ID", "DYNO")
}
