package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cinepass/pkg/metrics"
)

const (
	WorkspaceSweepJobName = "workspace-sweep"
	StoreFlushJobName     = "store-flush"
)

type sweeper interface {
	Sweep(ctx context.Context) int
}

// NewWorkspaceSweepJob drops idle storefront workspaces.
func NewWorkspaceSweepJob(target sweeper, jobMetrics *metrics.JobMetrics) (Job, error) {
	if target == nil {
		return nil, fmt.Errorf("sweep target required")
	}
	return &workspaceSweepJob{target: target, metrics: jobMetrics}, nil
}

type workspaceSweepJob struct {
	target  sweeper
	metrics *metrics.JobMetrics
}

func (j *workspaceSweepJob) Name() string { return WorkspaceSweepJobName }

func (j *workspaceSweepJob) Run(ctx context.Context) error {
	j.metrics.AddEvicted(WorkspaceSweepJobName, j.target.Sweep(ctx))
	return nil
}

type flusher interface {
	Flush(ctx context.Context) error
}

// NewStoreFlushJob pushes pending write-behind saves to the backing store.
func NewStoreFlushJob(target flusher) (Job, error) {
	if target == nil {
		return nil, fmt.Errorf("flush target required")
	}
	return &storeFlushJob{target: target}, nil
}

type storeFlushJob struct {
	target flusher
}

func (j *storeFlushJob) Name() string { return StoreFlushJobName }

func (j *storeFlushJob) Run(ctx context.Context) error {
	if err := j.target.Flush(ctx); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}
