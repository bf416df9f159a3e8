package usecase

import "time"

const (
	// DefaultExportTimeout bounds a single exporter write.
	DefaultExportTimeout = 30 * time.Second

	// partitionBuffer is the per-worker channel depth used by ReplayPartitioned.
	partitionBuffer = 256
)
