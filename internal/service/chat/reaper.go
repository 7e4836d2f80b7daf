package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Teachmetech/ChatSeal/internal/utils/log"
)

// SweepInterval is the fixed wall-clock cadence of the expiry sweep. Not
// configurable per room.
const SweepInterval = 5 * time.Minute

// Reaper eagerly purges expired rooms: each room's blobs and message
// records go first, the room record last. A crash mid-sweep therefore
// leaves at worst an orphaned empty room, which the next sweep retries as a
// no-op, never unreachable messages. Sweeps are idempotent.
type Reaper struct {
	svc      *Service
	interval time.Duration
}

func NewReaper(svc *Service) *Reaper {
	return &Reaper{svc: svc, interval: SweepInterval}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	log.Info("reaper started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if report, err := r.SweepOnce(ctx); err != nil {
			log.Error("sweep failed", zap.Error(err))
		} else if report.RoomsDeleted > 0 || !report.Clean() {
			log.Info("sweep finished",
				zap.Int("rooms", report.RoomsDeleted),
				zap.Int("messages", report.MessagesDeleted),
				zap.Int("blobs", report.BlobsDeleted),
				zap.Int("failures", len(report.Failures)+len(report.MessageFailures)))
		}

		select {
		case <-ctx.Done():
			log.Info("reaper stopped")
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce deletes every room whose expiry has passed, along with all its
// messages and blobs. Blob failures are logged and recorded, never fatal;
// the room record is only removed after all of its message records are
// gone. A room with surviving message records is left in place for the
// next sweep, so a partial failure can orphan an empty room but never a
// message.
func (r *Reaper) SweepOnce(ctx context.Context) (*CleanupReport, error) {
	now := r.svc.now()
	expired, err := r.svc.rooms.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &CleanupReport{}
	for _, room := range expired {
		failed, err := r.svc.purgeMessages(ctx, room.ID, report)
		if err != nil {
			log.Error("failed to purge room messages",
				zap.String("roomID", room.ID), zap.Error(err))
			continue
		}
		if failed > 0 {
			log.Warn("keeping room with surviving messages for next sweep",
				zap.String("roomID", room.ID), zap.Int("remaining", failed))
			continue
		}

		// Barrier: purgeMessages has joined all message deletions.
		if err := r.svc.rooms.Delete(ctx, room.ID); err != nil {
			log.Error("failed to delete room",
				zap.String("roomID", room.ID), zap.Error(err))
			continue
		}
		report.addRoomDeleted()
	}
	return report, nil
}
