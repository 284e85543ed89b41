package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/snipstash/snipstash-server/internal/config"
	"github.com/snipstash/snipstash-server/internal/logger"
	"github.com/snipstash/snipstash-server/internal/service"
)

// PurgeJob periodically deletes recycled snippets past their expiry.
// A nil cancel means the job is disabled.
type PurgeJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *PurgeJob) Shutdown() error {
	if j.cancel == nil {
		return nil
	}
	j.cancel()
	<-j.done
	return nil
}

// ProvidePurgeJob provides the expired snippet sweep. It only runs when
// PURGE_INTERVAL is positive; otherwise purging is left to explicit calls.
func ProvidePurgeJob(i do.Injector) (*PurgeJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	snippets := do.MustInvoke[*service.SnippetService](i)

	interval := cfg.Recycle.PurgeInterval
	if interval <= 0 {
		log.Info("Expired snippet sweep disabled")
		return &PurgeJob{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sweep := func() {
		sweepCtx, cancelSweep := context.WithTimeout(ctx, sweepTimeout)
		defer cancelSweep()
		purged, err := snippets.PurgeExpired(sweepCtx, time.Now())
		if err != nil {
			log.Warn("Expired snippet sweep failed", "error", err)
			return
		}
		if len(purged) > 0 {
			log.Info("Expired snippet sweep completed", "purged", len(purged))
		}
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sweep()

		for {
			select {
			case <-ticker.C:
				sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Expired snippet sweep started", "interval", interval)

	return &PurgeJob{cancel: cancel, done: done}, nil
}
