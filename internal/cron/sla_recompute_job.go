package cron

import (
	"context"
	"fmt"

	"github.com/rmarroquin/casedesk-backend/pkg/logger"
)

type slaRefresher interface {
	EnsureFresh(ctx context.Context) error
}

// SLARecomputeJobParams configure the scheduled SLA refresh.
type SLARecomputeJobParams struct {
	Logger *logger.Logger
	SLA    slaRefresher
}

// NewSLARecomputeJob wraps the gate-protected refresh as a cron job. The
// gate itself decides whether any work happens, so running this more often
// than the interval is harmless.
func NewSLARecomputeJob(params SLARecomputeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.SLA == nil {
		return nil, fmt.Errorf("sla service required")
	}
	return &slaRecomputeJob{
		logg: params.Logger,
		sla:  params.SLA,
	}, nil
}

type slaRecomputeJob struct {
	logg *logger.Logger
	sla  slaRefresher
}

func (j *slaRecomputeJob) Name() string { return "sla-recompute" }

func (j *slaRecomputeJob) Run(ctx context.Context) error {
	if err := j.sla.EnsureFresh(ctx); err != nil {
		return fmt.Errorf("sla recompute: %w", err)
	}
	return nil
}
