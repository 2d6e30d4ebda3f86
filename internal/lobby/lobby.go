package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fcavalcantirj/jarls-sub005/internal/engine"
)

// ErrStopped is returned by the request helpers once the lobby loop has exited.
var ErrStopped = errors.New("lobby stopped")

type Msg interface{ isLobbyMsg() }

// FromClient carries a game action. Reply, when set, receives exactly one Result.
type FromClient struct {
	Action engine.Action
	Reply  chan Result
}

func (FromClient) isLobbyMsg() {}

// Seat asks the engine to seat a player in this game.
type Seat struct {
	PlayerID string
	Reply    chan Result
}

func (Seat) isLobbyMsg() {}

// Join subscribes a connection to snapshots. PlayerID is optional; when it names
// a seated player the player is marked connected.
type Join struct {
	ClientID string
	PlayerID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

// TimerFired is sent by the lobby's own turn timer.
type TimerFired struct{ Turn int }

func (TimerFired) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version int          `json:"version"`
	State   engine.State `json:"state"`
}

type Result struct {
	Snapshot Snapshot
	Err      error
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Publisher receives every committed snapshot.
type Publisher interface {
	Publish(ctx context.Context, version int, s engine.State) error
}

type Option func(*Lobby)

func WithLogger(log *zap.Logger) Option { return func(l *Lobby) { l.log = log } }

func WithClock(now func() time.Time) Option { return func(l *Lobby) { l.now = now } }

func WithPublisher(p Publisher) Option { return func(l *Lobby) { l.pub = p } }

// WithVersion resumes a restored game at a known snapshot version.
func WithVersion(v int) Option { return func(l *Lobby) { l.version = v } }

// Lobby is the single writer for one game: every action for the game goes
// through its inbox and is applied by the engine in arrival order.
type Lobby struct {
	id      string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	seats   map[string]string // client id -> player id
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	log   *zap.Logger
	now   func() time.Time
	pub   Publisher
	timer *time.Timer
}

func NewLobby(parent context.Context, initial engine.State, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		id:      initial.ID,
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		clients: make(map[string]chan Snapshot),
		seats:   make(map[string]string),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("game_id", l.id))

	l.arm()
	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- l.snapshot()
				if msg.PlayerID != "" {
					l.seats[msg.ClientID] = msg.PlayerID
					l.setConnected(msg.PlayerID, true)
				}

			case Leave:
				delete(l.clients, msg.ClientID)
				if pid, ok := l.seats[msg.ClientID]; ok {
					delete(l.seats, msg.ClientID)
					if !l.hasClientFor(pid) {
						l.setConnected(pid, false)
					}
				}

			case Seat:
				next, err := engine.JoinGame(l.state, msg.PlayerID, l.now())
				if err != nil {
					l.log.Debug("seat rejected", zap.String("player_id", msg.PlayerID), zap.Error(err))
					reply(msg.Reply, Result{Snapshot: l.snapshot(), Err: err})
					break
				}
				l.log.Info("player seated", zap.String("player_id", msg.PlayerID), zap.String("phase", string(next.Phase)))
				reply(msg.Reply, Result{Snapshot: l.commit(next)})

			case FromClient:
				reply(msg.Reply, l.apply(msg.Action))

			case TimerFired:
				l.onTimer(msg.Turn)

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func reply(ch chan Result, r Result) {
	if ch != nil {
		ch <- r
	}
}

func (l *Lobby) snapshot() Snapshot { return Snapshot{Version: l.version, State: l.state} }

// apply runs one action through the engine; a rejection leaves state untouched.
func (l *Lobby) apply(a engine.Action) Result {
	next, err := engine.ApplyAction(l.state, a, l.now())
	if err != nil {
		l.log.Debug("action rejected",
			zap.String("player_id", a.PlayerID),
			zap.String("action", string(a.Type)),
			zap.String("kind", engine.Kind(err)),
			zap.Error(err))
		return Result{Snapshot: l.snapshot(), Err: err}
	}
	snap := l.commit(next)
	if next.Phase == engine.PhaseFinished {
		fields := []zap.Field{zap.String("condition", string(*next.WinCondition))}
		if next.WinnerID != nil {
			fields = append(fields, zap.String("winner_id", *next.WinnerID))
		}
		l.log.Info("game finished", fields...)
	}
	return Result{Snapshot: snap}
}

func (l *Lobby) commit(next engine.State) Snapshot {
	l.state = next
	l.version++
	snap := l.snapshot()
	l.broadcast(snap)
	if l.pub != nil {
		if err := l.pub.Publish(l.ctx, snap.Version, snap.State); err != nil {
			l.log.Warn("publish snapshot", zap.Int("version", snap.Version), zap.Error(err))
		}
	}
	l.arm()
	return snap
}

func (l *Lobby) setConnected(playerID string, connected bool) {
	for _, p := range l.state.Players {
		if p.ID == playerID && p.Connected != connected {
			next, err := engine.SetConnected(l.state, playerID, connected)
			if err == nil {
				l.commit(next)
			}
			return
		}
	}
}

func (l *Lobby) hasClientFor(playerID string) bool {
	for _, pid := range l.seats {
		if pid == playerID {
			return true
		}
	}
	return false
}

// arm schedules a TimerFired for the current turn, replacing any earlier timer.
func (l *Lobby) arm() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	deadline, ok := engine.TurnDeadline(l.state)
	if !ok {
		return
	}
	turn := l.state.TurnNumber
	l.timer = time.AfterFunc(max(deadline.Sub(l.now()), 0), func() {
		select {
		case l.inbox <- TimerFired{Turn: turn}:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lobby) onTimer(turn int) {
	if l.state.Phase != engine.PhaseActive || turn != l.state.TurnNumber {
		return // stale: the turn already moved on
	}
	if res := l.apply(engine.TimerExpiry(*l.state.CurrentPlayerID)); res.Err != nil {
		l.log.Warn("turn timer fired early", zap.Int("turn", turn), zap.Error(res.Err))
	}
}

func (l *Lobby) shutdown() {
	if l.timer != nil {
		l.timer.Stop()
	}
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	var dropped []string
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
			if pid, ok := l.seats[id]; ok {
				delete(l.seats, id)
				dropped = append(dropped, pid)
			}
		}
	}
	// setConnected commits and broadcasts again, so it must run after the loop.
	for _, pid := range dropped {
		if !l.hasClientFor(pid) {
			l.setConnected(pid, false)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send delivers m unless the lobby has stopped or ctx ends first.
func (l *Lobby) Send(ctx context.Context, m Msg) bool {
	select {
	case l.inbox <- m:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Apply submits an action and waits for the engine's verdict.
func (l *Lobby) Apply(ctx context.Context, a engine.Action) (Result, error) {
	return l.request(ctx, func(reply chan Result) Msg { return FromClient{Action: a, Reply: reply} })
}

// SeatPlayer seats playerID and waits for the outcome.
func (l *Lobby) SeatPlayer(ctx context.Context, playerID string) (Result, error) {
	return l.request(ctx, func(reply chan Result) Msg { return Seat{PlayerID: playerID, Reply: reply} })
}

// State returns the current view of the game.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !l.Send(ctx, GetState{Reply: reply}) {
		return View{}, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (l *Lobby) request(ctx context.Context, build func(chan Result) Msg) (Result, error) {
	reply := make(chan Result, 1)
	if !l.Send(ctx, build(reply)) {
		return Result{}, ErrStopped
	}
	select {
	case r := <-reply:
		return r, nil
	case <-l.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done is closed once the lobby loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) ID() string { return l.id }
