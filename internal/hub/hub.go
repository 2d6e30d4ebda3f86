package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/fcavalcantirj/jarls-sub005/internal/engine"
	"github.com/fcavalcantirj/jarls-sub005/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

// CreateGame hosts a freshly created game. Reply receives the existing lobby if
// the id is already taken.
type CreateGame struct {
	ID    string
	State engine.State
	Reply chan *lobby.Lobby
}

// GetGame looks a game up, restoring it from the Loader on a miss.
type GetGame struct {
	ID    string
	Reply chan *lobby.Lobby
}

type EnsureGame struct {
	ID    string
	State engine.State // only used if creation happens
	Reply chan *lobby.Lobby
}

type RemoveGame struct {
	ID string
}

type ShutdownHub struct{}

func (CreateGame) isHubMsg()  {}
func (GetGame) isHubMsg()     {}
func (EnsureGame) isHubMsg()  {}
func (RemoveGame) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Loader restores a checkpointed game; found is false when nothing is stored.
type Loader interface {
	Load(ctx context.Context, id string) (s engine.State, version int, found bool, err error)
}

type Option func(*Hub)

func WithLogger(log *zap.Logger) Option { return func(h *Hub) { h.log = log } }

// WithLobbyOptions are applied to every lobby the hub starts.
func WithLobbyOptions(opts ...lobby.Option) Option {
	return func(h *Hub) { h.lobbyOpts = append(h.lobbyOpts, opts...) }
}

func WithLoader(l Loader) Option { return func(h *Hub) { h.loader = l } }

type Hub struct {
	inbox  chan HubMsg
	games  map[string]*lobby.Lobby
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	log       *zap.Logger
	lobbyOpts []lobby.Option
	loader    Loader
}

func NewHub(parent context.Context, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		games:  make(map[string]*lobby.Lobby),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once every hosted lobby has been told to stop.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateGame:
				msg.Reply <- h.ensure(msg.ID, msg.State, 0)

			case GetGame:
				msg.Reply <- h.lookup(msg.ID) // May be nil

			case EnsureGame:
				msg.Reply <- h.ensure(msg.ID, msg.State, 0)

			case RemoveGame:
				if lb := h.games[msg.ID]; lb != nil {
					select {
					case lb.Inbox() <- lobby.Shutdown{}:
					case <-lb.Done():
					}
					delete(h.games, msg.ID)
					h.log.Info("game removed", zap.String("game_id", msg.ID))
				}

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) ensure(id string, s engine.State, version int) *lobby.Lobby {
	if lb := h.games[id]; lb != nil {
		return lb
	}
	opts := append(append([]lobby.Option(nil), h.lobbyOpts...),
		lobby.WithLogger(h.log), lobby.WithVersion(version))
	lb := lobby.NewLobby(h.ctx, s, opts...)
	h.games[id] = lb
	h.log.Info("game hosted", zap.String("game_id", id), zap.Int("version", version))
	return lb
}

func (h *Hub) lookup(id string) *lobby.Lobby {
	if lb := h.games[id]; lb != nil {
		return lb
	}
	if h.loader == nil {
		return nil
	}
	s, version, found, err := h.loader.Load(h.ctx, id)
	if err != nil {
		h.log.Error("restore game", zap.String("game_id", id), zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}
	return h.ensure(id, s, version)
}

func (h *Hub) shutdown() {
	for id, lb := range h.games {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		case <-lb.Done():
		}
		delete(h.games, id)
	}
}
