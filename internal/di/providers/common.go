package providers

import "time"

// shutdownTimeout is the maximum time to wait for graceful shutdown of a component.
const shutdownTimeout = 30 * time.Second
