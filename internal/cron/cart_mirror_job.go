package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/jmcampos/minimart-backend/pkg/logger"
)

// CartMirrorJobName is the registry and metrics label for the cleanup job.
const CartMirrorJobName = "cart-mirror-cleanup"

const defaultMirrorMaxAge = 30 * 24 * time.Hour

type mirrorCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartMirrorJobParams configures the stale cart mirror cleanup.
type CartMirrorJobParams struct {
	Logger *logger.Logger
	Mirror mirrorCleaner
	MaxAge time.Duration
}

// NewCartMirrorJob builds the job that prunes cart mirror rows whose last
// update is older than MaxAge. The session copy expires on its own in
// Redis; the mirror needs this sweep.
func NewCartMirrorJob(params CartMirrorJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Mirror == nil {
		return nil, fmt.Errorf("cart mirror repository required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMirrorMaxAge
	}
	return &cartMirrorJob{
		logg:   params.Logger,
		mirror: params.Mirror,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type cartMirrorJob struct {
	logg   *logger.Logger
	mirror mirrorCleaner
	maxAge time.Duration
	now    func() time.Time
}

func (j *cartMirrorJob) Name() string { return CartMirrorJobName }

func (j *cartMirrorJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.maxAge)
	removed, err := j.mirror.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pruning cart mirror: %w", err)
	}
	fields := map[string]any{
		"removed": removed,
		"cutoff":  cutoff.UTC().Format(time.RFC3339),
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "stale cart rows pruned")
	return nil
}
