package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/fcavalcantirj/jarls-sub005/internal/events"
)

type Subscriber interface {
	Subscribe(ctx context.Context, h events.Handler) error
}

// Recorder writes every published snapshot to a Store.
type Recorder struct {
	store Store
	log   *zap.Logger
}

func NewRecorder(s Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: s, log: log}
}

// Run subscribes and blocks until ctx is done.
func (r *Recorder) Run(ctx context.Context, sub Subscriber) error {
	if err := sub.Subscribe(ctx, r.record); err != nil {
		return err
	}
	r.log.Info("snapshot recorder started")
	<-ctx.Done()
	return nil
}

func (r *Recorder) record(ctx context.Context, snap events.Snapshot) error {
	if err := r.store.Save(ctx, snap.Version, snap.State); err != nil {
		return err
	}
	r.log.Debug("snapshot saved", zap.String("game_id", snap.State.ID), zap.Int("version", snap.Version))
	return nil
}
