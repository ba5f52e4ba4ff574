package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/internal/core/session"
)

// RecoverySweeper runs once at boot. Durable records still marked active
// belong to hosts whose connections died with the previous process, so they
// are deactivated rather than resurrected.
type RecoverySweeper struct {
	streams ports.StreamRepository
	store   *session.Store
	lock    ports.Locker
	logger  *zap.SugaredLogger
}

func NewRecoverySweeper(streams ports.StreamRepository, store *session.Store, logger *zap.SugaredLogger) *RecoverySweeper {
	return &RecoverySweeper{streams: streams, store: store, logger: logger}
}

// WithLock makes Sweep a no-op while another process holds lock. The lock
// only covers processes booting together; a process started next to a
// running one still sweeps that one's live records.
func (r *RecoverySweeper) WithLock(lock ports.Locker) *RecoverySweeper {
	r.lock = lock
	return r
}

// Sweep returns how many records it deactivated.
func (r *RecoverySweeper) Sweep(ctx context.Context) (int, error) {
	if r.lock != nil {
		ok, err := r.lock.TryLock(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: recovery lock: %v", domain.ErrStorageFailure, err)
		}
		if !ok {
			r.logger.Infow("Recovery sweep skipped, lock held elsewhere")
			return 0, nil
		}
		defer func() {
			if err := r.lock.Unlock(ctx); err != nil {
				r.logger.Warnw("Failed to release recovery lock", "error", err)
			}
		}()
	}

	records, err := r.streams.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list active streams: %v", domain.ErrStorageFailure, err)
	}

	swept := 0
	var errs []error
	for _, rec := range records {
		if _, live := r.store.Get(rec.OwnerID); live {
			continue
		}
		if err := r.streams.Deactivate(ctx, rec.OwnerID); err != nil {
			errs = append(errs, fmt.Errorf("deactivate %s: %w", rec.OwnerID, err))
			continue
		}
		swept++
		r.logger.Infow("Deactivated orphaned stream", "host_id", rec.OwnerID, "stream_id", rec.ID)
	}
	return swept, errors.Join(errs...)
}
