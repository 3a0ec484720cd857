package drives

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
)

// Reaper removes transfer sessions nobody closed within ttl. Chunks and
// placeholder versions of reaped uploads are left in place.
type Reaper struct {
	sc  *StorageContext
	ttl time.Duration
}

func NewReaper(sc *StorageContext, ttl time.Duration) *Reaper {
	return &Reaper{sc: sc, ttl: ttl}
}

// Sweep takes every expired session once and reports how many it removed.
// A zero ttl disables reaping.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	if r.ttl <= 0 {
		return 0, nil
	}
	total := 0
	for kind, prefix := range map[string]string{"upload": models.UploaderPrefix, "download": models.DownloaderPrefix} {
		n, err := r.sweep(ctx, kind, prefix)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Reaper) sweep(ctx context.Context, kind, prefix string) (int, error) {
	keys, err := r.sc.bucket().List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	now := r.sc.now()
	reaped := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return reaped, err
		}
		var s models.TransferSession
		found, err := r.sc.getJSON(ctx, key, &s)
		if err != nil {
			r.sc.logger().Warn(ctx, "unreadable session", "key", key, "error", err)
			continue
		}
		if !found || !s.Expired(now, r.ttl) {
			continue
		}
		if _, won, err := r.sc.bucket().Take(ctx, key); err != nil {
			return reaped, err
		} else if won {
			reaped++
			r.sc.Metrics.Reaped(kind)
			r.sc.logger().Info(ctx, "session reaped", "kind", kind, "key", strings.TrimPrefix(key, prefix))
		}
	}
	return reaped, nil
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Sweep(ctx); err != nil {
				r.sc.logger().Error(ctx, "session sweep failed", "error", err, "reaped", n)
			} else if n > 0 {
				r.sc.logger().Info(ctx, "session sweep finished", "reaped", n)
			}
		}
	}
}
