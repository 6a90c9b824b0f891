package storage

import "time"

const (
	// DefaultReconcileInterval is how often pending invoice purges are retried.
	DefaultReconcileInterval = 1 * time.Minute

	// DefaultReconcileGrace is how long an invoice may stay pending before the
	// reconciler picks it up.
	DefaultReconcileGrace = 30 * time.Second

	backendMongo  = "mongodb"
	backendMemory = "memory"
)
