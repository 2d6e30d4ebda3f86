// Package events carries committed game snapshots from lobbies to background
// consumers over an in-memory watermill pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/fcavalcantirj/jarls-sub005/internal/engine"
)

// TopicSnapshots receives one message per committed game version. Messages for
// the same game may arrive out of order; consumers compare versions.
const TopicSnapshots = "game.snapshots"

const (
	metaKeyGameID  = "game_id"
	metaKeyVersion = "version"
)

type Snapshot struct {
	Version int          `json:"version"`
	State   engine.State `json:"state"`
}

type Handler func(ctx context.Context, snap Snapshot) error

// Bus satisfies lobby.Publisher.
type Bus struct {
	ch  *gochannel.GoChannel
	log *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		ch:  gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewZapAdapter(log)),
		log: log,
	}
}

func (b *Bus) Publish(ctx context.Context, version int, s engine.State) error {
	payload, err := json.Marshal(Snapshot{Version: version, State: s})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaKeyGameID, s.ID)
	msg.Metadata.Set(metaKeyVersion, strconv.Itoa(version))
	msg.SetContext(ctx)
	return b.ch.Publish(TopicSnapshots, msg)
}

// Subscribe starts delivering snapshots to h in the background and returns
// immediately. Delivery stops when ctx is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, h Handler) error {
	messages, err := b.ch.Subscribe(ctx, TopicSnapshots)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var snap Snapshot
			if err := json.Unmarshal(msg.Payload, &snap); err != nil {
				b.log.Error("decode snapshot", zap.String("msg_id", msg.UUID), zap.Error(err))
				msg.Ack()
				continue
			}
			// gochannel redelivers nacked messages forever, so failures are logged and acked.
			if err := h(ctx, snap); err != nil {
				b.log.Error("handle snapshot",
					zap.String("game_id", msg.Metadata.Get(metaKeyGameID)),
					zap.Int("version", snap.Version),
					zap.Error(err))
			}
			msg.Ack()
		}
		b.log.Debug("snapshot subscription ended")
	}()
	return nil
}

func (b *Bus) Close() error { return b.ch.Close() }
