package providers

import "time"

const (
	// shutdownTimeout bounds how long a component may take to stop.
	shutdownTimeout = 30 * time.Second

	// sweepTimeout bounds a single expired snippet sweep.
	sweepTimeout = 2 * time.Minute
)
