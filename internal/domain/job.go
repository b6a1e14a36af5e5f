package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobDeferred JobStatus = "deferred"
)

// SyncJob is one unit of scheduled fetch work. At most one job per
// dedupe key may be pending or running at any time.
type SyncJob struct {
	ID         uuid.UUID
	Provider   Provider
	SKU        string
	SizeKey    string // empty means "all sizes for this SKU"
	Priority   int
	Status     JobStatus
	RetryCount int
	NotBefore  time.Time
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DedupeKey builds the composite identity used to suppress duplicate
// in-flight work for the same (provider, sku, size).
func DedupeKey(provider Provider, sku, sizeKey string) string {
	return fmt.Sprintf("%s:%s:%s", provider, sku, sizeKey)
}
